package types

import (
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	EventProposedType           = "proposed"
	EventSpendingType           = "spending"
	EventAwardedType            = "awarded"
	EventRejectedType           = "rejected"
	EventBurntType              = "burnt"
	EventRolloverType           = "rollover"
	EventDepositType            = "deposit"
	EventNewTipType             = "new_tip"
	EventTipClosingType         = "tip_closing"
	EventTipClosedType          = "tip_closed"
	EventTipRetractedType       = "tip_retracted"
	EventBountyProposedType     = "bounty_proposed"
	EventBountyRejectedType     = "bounty_rejected"
	EventBountyActiveType       = "bounty_became_active"
	EventBountyAwardedType      = "bounty_awarded"
	EventBountyClaimedType      = "bounty_claimed"
	EventBountyCanceledType     = "bounty_canceled"
	EventBountyExtendedType     = "bounty_extended"
	EventBountyValueMinimumType = "bounty_value_minimum"
)

func uintAttr(key string, v uint64, index bool) abci.EventAttribute {
	return abci.EventAttribute{Key: key, Value: strconv.FormatUint(v, 10), Index: index}
}

func strAttr(key, v string, index bool) abci.EventAttribute {
	return abci.EventAttribute{Key: key, Value: v, Index: index}
}

func attrUint(e abci.Event, key string) (uint64, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			v, err := strconv.ParseUint(a.Value, 10, 64)
			if err != nil {
				return 0, false
			}
			return v, true
		}
	}
	return 0, false
}

func attrStr(e abci.Event, key string) string {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

type EventProposed struct {
	Proposal    uint64 `json:"proposal"`
	Proposer    string `json:"proposer"`
	Value       uint64 `json:"value"`
	Beneficiary string `json:"beneficiary"`
	Bond        uint64 `json:"bond"`
}

func EncodeEventProposed(ev *EventProposed) abci.Event {
	return abci.Event{
		Type: EventProposedType,
		Attributes: []abci.EventAttribute{
			uintAttr("proposal", ev.Proposal, true),
			strAttr("proposer", ev.Proposer, false),
			uintAttr("value", ev.Value, false),
			strAttr("beneficiary", ev.Beneficiary, false),
			uintAttr("bond", ev.Bond, false),
		},
	}
}

func DecodeEventProposed(e abci.Event) *EventProposed {
	id, ok := attrUint(e, "proposal")
	if !ok {
		return nil
	}
	value, _ := attrUint(e, "value")
	bond, _ := attrUint(e, "bond")
	return &EventProposed{
		Proposal:    id,
		Proposer:    attrStr(e, "proposer"),
		Value:       value,
		Beneficiary: attrStr(e, "beneficiary"),
		Bond:        bond,
	}
}

type EventSpending struct {
	Budget uint64 `json:"budget"`
}

func EncodeEventSpending(ev *EventSpending) abci.Event {
	return abci.Event{
		Type:       EventSpendingType,
		Attributes: []abci.EventAttribute{uintAttr("budget", ev.Budget, false)},
	}
}

func DecodeEventSpending(e abci.Event) *EventSpending {
	budget, ok := attrUint(e, "budget")
	if !ok {
		return nil
	}
	return &EventSpending{Budget: budget}
}

type EventAwarded struct {
	Proposal    uint64 `json:"proposal"`
	Value       uint64 `json:"value"`
	Beneficiary string `json:"beneficiary"`
}

func EncodeEventAwarded(ev *EventAwarded) abci.Event {
	return abci.Event{
		Type: EventAwardedType,
		Attributes: []abci.EventAttribute{
			uintAttr("proposal", ev.Proposal, true),
			uintAttr("value", ev.Value, false),
			strAttr("beneficiary", ev.Beneficiary, false),
		},
	}
}

func DecodeEventAwarded(e abci.Event) *EventAwarded {
	id, ok := attrUint(e, "proposal")
	if !ok {
		return nil
	}
	value, _ := attrUint(e, "value")
	return &EventAwarded{Proposal: id, Value: value, Beneficiary: attrStr(e, "beneficiary")}
}

type EventRejected struct {
	Proposal uint64 `json:"proposal"`
	Slashed  uint64 `json:"slashed"`
}

func EncodeEventRejected(ev *EventRejected) abci.Event {
	return abci.Event{
		Type: EventRejectedType,
		Attributes: []abci.EventAttribute{
			uintAttr("proposal", ev.Proposal, true),
			uintAttr("slashed", ev.Slashed, false),
		},
	}
}

func DecodeEventRejected(e abci.Event) *EventRejected {
	id, ok := attrUint(e, "proposal")
	if !ok {
		return nil
	}
	slashed, _ := attrUint(e, "slashed")
	return &EventRejected{Proposal: id, Slashed: slashed}
}

type EventBurnt struct {
	Amount uint64 `json:"amount"`
}

func EncodeEventBurnt(ev *EventBurnt) abci.Event {
	return abci.Event{
		Type:       EventBurntType,
		Attributes: []abci.EventAttribute{uintAttr("amount", ev.Amount, false)},
	}
}

func DecodeEventBurnt(e abci.Event) *EventBurnt {
	amount, ok := attrUint(e, "amount")
	if !ok {
		return nil
	}
	return &EventBurnt{Amount: amount}
}

type EventRollover struct {
	Remaining uint64 `json:"remaining"`
}

func EncodeEventRollover(ev *EventRollover) abci.Event {
	return abci.Event{
		Type:       EventRolloverType,
		Attributes: []abci.EventAttribute{uintAttr("remaining", ev.Remaining, false)},
	}
}

func DecodeEventRollover(e abci.Event) *EventRollover {
	remaining, ok := attrUint(e, "remaining")
	if !ok {
		return nil
	}
	return &EventRollover{Remaining: remaining}
}

type EventDeposit struct {
	Amount uint64 `json:"amount"`
}

func EncodeEventDeposit(ev *EventDeposit) abci.Event {
	return abci.Event{
		Type:       EventDepositType,
		Attributes: []abci.EventAttribute{uintAttr("amount", ev.Amount, false)},
	}
}

type EventNewTip struct {
	Hash   string `json:"hash"`
	Reason string `json:"reason"`
	Who    string `json:"who"`
	Finder string `json:"finder"`
}

func EncodeEventNewTip(ev *EventNewTip) abci.Event {
	return abci.Event{
		Type: EventNewTipType,
		Attributes: []abci.EventAttribute{
			strAttr("hash", ev.Hash, true),
			strAttr("reason", ev.Reason, false),
			strAttr("who", ev.Who, false),
			strAttr("finder", ev.Finder, false),
		},
	}
}

func DecodeEventNewTip(e abci.Event) *EventNewTip {
	hash := attrStr(e, "hash")
	if hash == "" {
		return nil
	}
	return &EventNewTip{
		Hash:   hash,
		Reason: attrStr(e, "reason"),
		Who:    attrStr(e, "who"),
		Finder: attrStr(e, "finder"),
	}
}

type EventTipClosing struct {
	Hash     string `json:"hash"`
	ClosesAt uint64 `json:"closesAt"`
}

func EncodeEventTipClosing(ev *EventTipClosing) abci.Event {
	return abci.Event{
		Type: EventTipClosingType,
		Attributes: []abci.EventAttribute{
			strAttr("hash", ev.Hash, true),
			uintAttr("closesAt", ev.ClosesAt, false),
		},
	}
}

func DecodeEventTipClosing(e abci.Event) *EventTipClosing {
	hash := attrStr(e, "hash")
	if hash == "" {
		return nil
	}
	closesAt, _ := attrUint(e, "closesAt")
	return &EventTipClosing{Hash: hash, ClosesAt: closesAt}
}

type EventTipClosed struct {
	Hash   string `json:"hash"`
	Who    string `json:"who"`
	Payout uint64 `json:"payout"`
}

func EncodeEventTipClosed(ev *EventTipClosed) abci.Event {
	return abci.Event{
		Type: EventTipClosedType,
		Attributes: []abci.EventAttribute{
			strAttr("hash", ev.Hash, true),
			strAttr("who", ev.Who, false),
			uintAttr("payout", ev.Payout, false),
		},
	}
}

func DecodeEventTipClosed(e abci.Event) *EventTipClosed {
	hash := attrStr(e, "hash")
	if hash == "" {
		return nil
	}
	payout, _ := attrUint(e, "payout")
	return &EventTipClosed{Hash: hash, Who: attrStr(e, "who"), Payout: payout}
}

type EventTipRetracted struct {
	Hash string `json:"hash"`
}

func EncodeEventTipRetracted(ev *EventTipRetracted) abci.Event {
	return abci.Event{
		Type:       EventTipRetractedType,
		Attributes: []abci.EventAttribute{strAttr("hash", ev.Hash, true)},
	}
}

func DecodeEventTipRetracted(e abci.Event) *EventTipRetracted {
	hash := attrStr(e, "hash")
	if hash == "" {
		return nil
	}
	return &EventTipRetracted{Hash: hash}
}

type EventBountyProposed struct {
	Bounty   uint64 `json:"bounty"`
	Proposer string `json:"proposer"`
	Curator  string `json:"curator"`
	Value    uint64 `json:"value"`
	Fee      uint64 `json:"fee"`
	Parent   uint64 `json:"parent"`
	Sub      bool   `json:"sub"`
}

func EncodeEventBountyProposed(ev *EventBountyProposed) abci.Event {
	sub := "0"
	if ev.Sub {
		sub = "1"
	}
	return abci.Event{
		Type: EventBountyProposedType,
		Attributes: []abci.EventAttribute{
			uintAttr("bounty", ev.Bounty, true),
			strAttr("proposer", ev.Proposer, false),
			strAttr("curator", ev.Curator, false),
			uintAttr("value", ev.Value, false),
			uintAttr("fee", ev.Fee, false),
			uintAttr("parent", ev.Parent, false),
			strAttr("sub", sub, false),
		},
	}
}

func DecodeEventBountyProposed(e abci.Event) *EventBountyProposed {
	id, ok := attrUint(e, "bounty")
	if !ok {
		return nil
	}
	value, _ := attrUint(e, "value")
	fee, _ := attrUint(e, "fee")
	parent, _ := attrUint(e, "parent")
	return &EventBountyProposed{
		Bounty:   id,
		Proposer: attrStr(e, "proposer"),
		Curator:  attrStr(e, "curator"),
		Value:    value,
		Fee:      fee,
		Parent:   parent,
		Sub:      attrStr(e, "sub") == "1",
	}
}

type EventBountyRejected struct {
	Bounty  uint64 `json:"bounty"`
	Slashed uint64 `json:"slashed"`
}

func EncodeEventBountyRejected(ev *EventBountyRejected) abci.Event {
	return abci.Event{
		Type: EventBountyRejectedType,
		Attributes: []abci.EventAttribute{
			uintAttr("bounty", ev.Bounty, true),
			uintAttr("slashed", ev.Slashed, false),
		},
	}
}

func DecodeEventBountyRejected(e abci.Event) *EventBountyRejected {
	id, ok := attrUint(e, "bounty")
	if !ok {
		return nil
	}
	slashed, _ := attrUint(e, "slashed")
	return &EventBountyRejected{Bounty: id, Slashed: slashed}
}

type EventBountyBecameActive struct {
	Bounty  uint64 `json:"bounty"`
	Expires uint64 `json:"expires"`
}

func EncodeEventBountyBecameActive(ev *EventBountyBecameActive) abci.Event {
	return abci.Event{
		Type: EventBountyActiveType,
		Attributes: []abci.EventAttribute{
			uintAttr("bounty", ev.Bounty, true),
			uintAttr("expires", ev.Expires, false),
		},
	}
}

func DecodeEventBountyBecameActive(e abci.Event) *EventBountyBecameActive {
	id, ok := attrUint(e, "bounty")
	if !ok {
		return nil
	}
	expires, _ := attrUint(e, "expires")
	return &EventBountyBecameActive{Bounty: id, Expires: expires}
}

type EventBountyAwarded struct {
	Bounty      uint64 `json:"bounty"`
	Beneficiary string `json:"beneficiary"`
	UnlockAt    uint64 `json:"unlockAt"`
}

func EncodeEventBountyAwarded(ev *EventBountyAwarded) abci.Event {
	return abci.Event{
		Type: EventBountyAwardedType,
		Attributes: []abci.EventAttribute{
			uintAttr("bounty", ev.Bounty, true),
			strAttr("beneficiary", ev.Beneficiary, false),
			uintAttr("unlockAt", ev.UnlockAt, false),
		},
	}
}

func DecodeEventBountyAwarded(e abci.Event) *EventBountyAwarded {
	id, ok := attrUint(e, "bounty")
	if !ok {
		return nil
	}
	unlockAt, _ := attrUint(e, "unlockAt")
	return &EventBountyAwarded{Bounty: id, Beneficiary: attrStr(e, "beneficiary"), UnlockAt: unlockAt}
}

type EventBountyClaimed struct {
	Bounty      uint64 `json:"bounty"`
	Payout      uint64 `json:"payout"`
	Beneficiary string `json:"beneficiary"`
}

func EncodeEventBountyClaimed(ev *EventBountyClaimed) abci.Event {
	return abci.Event{
		Type: EventBountyClaimedType,
		Attributes: []abci.EventAttribute{
			uintAttr("bounty", ev.Bounty, true),
			uintAttr("payout", ev.Payout, false),
			strAttr("beneficiary", ev.Beneficiary, false),
		},
	}
}

func DecodeEventBountyClaimed(e abci.Event) *EventBountyClaimed {
	id, ok := attrUint(e, "bounty")
	if !ok {
		return nil
	}
	payout, _ := attrUint(e, "payout")
	return &EventBountyClaimed{Bounty: id, Payout: payout, Beneficiary: attrStr(e, "beneficiary")}
}

type EventBountyCanceled struct {
	Bounty   uint64 `json:"bounty"`
	Refunded uint64 `json:"refunded"`
}

func EncodeEventBountyCanceled(ev *EventBountyCanceled) abci.Event {
	return abci.Event{
		Type: EventBountyCanceledType,
		Attributes: []abci.EventAttribute{
			uintAttr("bounty", ev.Bounty, true),
			uintAttr("refunded", ev.Refunded, false),
		},
	}
}

func DecodeEventBountyCanceled(e abci.Event) *EventBountyCanceled {
	id, ok := attrUint(e, "bounty")
	if !ok {
		return nil
	}
	refunded, _ := attrUint(e, "refunded")
	return &EventBountyCanceled{Bounty: id, Refunded: refunded}
}

type EventBountyExtended struct {
	Bounty  uint64 `json:"bounty"`
	Expires uint64 `json:"expires"`
}

func EncodeEventBountyExtended(ev *EventBountyExtended) abci.Event {
	return abci.Event{
		Type: EventBountyExtendedType,
		Attributes: []abci.EventAttribute{
			uintAttr("bounty", ev.Bounty, true),
			uintAttr("expires", ev.Expires, false),
		},
	}
}

func DecodeEventBountyExtended(e abci.Event) *EventBountyExtended {
	id, ok := attrUint(e, "bounty")
	if !ok {
		return nil
	}
	expires, _ := attrUint(e, "expires")
	return &EventBountyExtended{Bounty: id, Expires: expires}
}

type EventBountyValueMinimum struct {
	Value uint64 `json:"value"`
}

func EncodeEventBountyValueMinimum(ev *EventBountyValueMinimum) abci.Event {
	return abci.Event{
		Type:       EventBountyValueMinimumType,
		Attributes: []abci.EventAttribute{uintAttr("value", ev.Value, false)},
	}
}

func DecodeEventBountyValueMinimum(e abci.Event) *EventBountyValueMinimum {
	value, ok := attrUint(e, "value")
	if !ok {
		return nil
	}
	return &EventBountyValueMinimum{Value: value}
}

// Addr renders an account address for event attributes.
func Addr(b []byte) string {
	return common.Bytes2Hex(b)
}
