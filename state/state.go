package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"

	abci_types "github.com/cometbft/cometbft/abci/types"
	cmtcrypto "github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/mossline/treasury-app/config"
	"github.com/mossline/treasury-app/tx"
	"github.com/mossline/treasury-app/types"
)

const (
	StartAccountIdx = 65536

	ModifiedFlagNew = 1 << 0
	ModifiedFlagMod = 1 << 1
	ModifiedFlagPK  = 1 << 2

	MaxValidators = 100
)

var (
	ErrNotFound = errors.New("not found")
)

var (
	KeyState           = "s"
	KeyAccountIndex    = "i%s"
	KeyAccountBody     = "a%x"
	KeyProposalBody    = "p%v"
	KeyProposalCount   = "pc"
	KeyApprovals       = "pa"
	KeyTipBody         = "t%x"
	KeyReasonBody      = "r%x"
	KeyBountyBody      = "b%v"
	KeyBountyDesc      = "bd%v"
	KeyBountyCount     = "bc"
	KeyBountyApprovals = "ba"
	KeyBountyValueMin  = "bm"
)

var (
	ErrTxCallerNoexists     = errors.New("caller noexists")
	ErrTxNonceInvalid       = errors.New("nonce invalid")
	ErrTxSigInvalid         = errors.New("signature invalid")
	ErrStateHeightUnmatched = errors.New("state height unmatched")
	ErrAccountAlreadyExists = errors.New("account already exists")
	ErrAccountNoexists      = errors.New("account noexists")
	ErrOneActionInOneBlock  = errors.New("one action in one block")

	ErrInsufficientBalance = errors.New("insufficient proposer balance")
	ErrInvalidIndex        = errors.New("invalid index")
	ErrReasonTooBig        = errors.New("reason too big")
	ErrAlreadyKnown        = errors.New("already known")
	ErrUnknownTip          = errors.New("unknown tip")
	ErrNotFinder           = errors.New("not finder")
	ErrStillOpen           = errors.New("still open")
	ErrPremature           = errors.New("premature")
	ErrUnexpectedStatus    = errors.New("unexpected status")
	ErrRequireCurator      = errors.New("require curator")
	ErrInvalidValue        = errors.New("invalid value")
	ErrInvalidFee          = errors.New("invalid fee")
	ErrExceedDepthLimit    = errors.New("exceed depth limit")

	ErrNotApprover = errors.New("not approver")
	ErrNotRejector = errors.New("not rejector")
	ErrNotTipper   = errors.New("not tipper")
)

type StateHeader struct {
	Height     uint64 `json:"height"`
	ChainId    string `json:"chainId"`
	AccountIdx uint64 `json:"accountIdx"`
	RootHash   []byte `json:"rootHash,omitempty"`
	Hash       []byte `json:"hash,omitempty"`
}

func (h *StateHeader) Clone() *StateHeader {
	n := &StateHeader{
		Height:     h.Height,
		ChainId:    h.ChainId,
		AccountIdx: h.AccountIdx,
	}
	if h.RootHash != nil {
		n.RootHash = append([]byte{}, h.RootHash...)
	}
	if h.Hash != nil {
		n.Hash = append([]byte{}, h.Hash...)
	}
	return n
}

// State is one working view over the merkleized store. Mutations are
// staged in memory and only reach the tree in Update; save commits the
// tree version. A nil entry in a staged map marks a deletion.
type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	params    config.TreasuryParams
	authority Authority

	header     *StateHeader
	validators []abci_types.ValidatorUpdate
	idxs       map[string]uint64
	acnts      map[uint64]*Account

	modifiedAcnts map[uint64]uint32

	proposalCount      uint64
	proposalCountDirty bool
	modProposals       map[uint64]*types.Proposal

	approvals       []uint64
	approvalsLoaded bool
	approvalsDirty  bool

	modTips    map[common.Hash]*types.OpenTip
	modReasons map[common.Hash][]byte

	bountyCount      uint64
	bountyCountDirty bool
	modBounties      map[uint64]*types.Bounty
	modDescs         map[uint64][]byte

	bountyApprovals       []uint64
	bountyApprovalsLoaded bool
	bountyApprovalsDirty  bool

	bountyValueMin      uint64
	bountyValueMinSet   bool
	bountyValueMinDirty bool
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger, params config.TreasuryParams, authority Authority) *State {
	s := &State{
		logger:        logger,
		db:            db,
		dbVer:         0,
		params:        params,
		authority:     authority,
		header:        new(StateHeader),
		validators:    []abci_types.ValidatorUpdate{},
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Account),
		modifiedAcnts: make(map[uint64]uint32),
		modProposals:  make(map[uint64]*types.Proposal),
		modTips:       make(map[common.Hash]*types.OpenTip),
		modReasons:    make(map[common.Hash][]byte),
		modBounties:   make(map[uint64]*types.Bounty),
		modDescs:      make(map[uint64][]byte),
	}
	s.header.AccountIdx = StartAccountIdx
	return s
}

func (s *State) nextState() *State {
	n := &State{
		logger:        s.logger,
		db:            s.db,
		dbVer:         s.dbVer,
		params:        s.params,
		authority:     s.authority,
		validators:    deepCopySlice(s.validators),
		idxs:          make(map[string]uint64),
		acnts:         make(map[uint64]*Account),
		modifiedAcnts: make(map[uint64]uint32),
		proposalCount: s.proposalCount,
		modProposals:  make(map[uint64]*types.Proposal),
		modTips:       make(map[common.Hash]*types.OpenTip),
		modReasons:    make(map[common.Hash][]byte),
		bountyCount:   s.bountyCount,
		modBounties:   make(map[uint64]*types.Bounty),
		modDescs:      make(map[uint64][]byte),
	}
	n.bountyValueMin = s.bountyValueMin
	n.bountyValueMinSet = s.bountyValueMinSet
	n.header = s.header.Clone()
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func deepCopyMap[K comparable, V any](source map[K]V) map[K]V {
	res := make(map[K]V)
	for k, v := range source {
		switch x := any(v).(type) {
		case *Account:
			res[k] = any(x.Clone()).(V)
		case *types.Proposal:
			if x == nil {
				res[k] = v
				continue
			}
			p := *x
			res[k] = any(&p).(V)
		case *types.OpenTip:
			if x == nil {
				res[k] = v
				continue
			}
			t := *x
			t.Tips = append([]types.TipContribution{}, x.Tips...)
			res[k] = any(&t).(V)
		case *types.Bounty:
			if x == nil {
				res[k] = v
				continue
			}
			b := *x
			res[k] = any(&b).(V)
		default:
			res[k] = v
		}
	}
	return res
}

func deepCopySlice[E any](source []E) []E {
	res := make([]E, len(source))
	copy(res, source)
	return res
}

func (s *State) Clone() *State {
	n := &State{
		logger:                s.logger,
		db:                    s.db,
		dbVer:                 s.dbVer,
		params:                s.params,
		authority:             s.authority,
		validators:            deepCopySlice(s.validators),
		idxs:                  deepCopyMap(s.idxs),
		acnts:                 deepCopyMap(s.acnts),
		modifiedAcnts:         deepCopyMap(s.modifiedAcnts),
		proposalCount:         s.proposalCount,
		proposalCountDirty:    s.proposalCountDirty,
		modProposals:          deepCopyMap(s.modProposals),
		approvals:             deepCopySlice(s.approvals),
		approvalsLoaded:       s.approvalsLoaded,
		approvalsDirty:        s.approvalsDirty,
		modTips:               deepCopyMap(s.modTips),
		modReasons:            deepCopyMap(s.modReasons),
		bountyCount:           s.bountyCount,
		bountyCountDirty:      s.bountyCountDirty,
		modBounties:           deepCopyMap(s.modBounties),
		modDescs:              deepCopyMap(s.modDescs),
		bountyApprovals:       deepCopySlice(s.bountyApprovals),
		bountyApprovalsLoaded: s.bountyApprovalsLoaded,
		bountyApprovalsDirty:  s.bountyApprovalsDirty,
		bountyValueMin:        s.bountyValueMin,
		bountyValueMinSet:     s.bountyValueMinSet,
		bountyValueMinDirty:   s.bountyValueMinDirty,
	}
	n.header = s.header.Clone()
	return n
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyProposalCount))
	if err != nil {
		if err != leveldb.ErrNotFound {
			return err
		}
	}
	s.proposalCount = new(big.Int).SetBytes(val).Uint64()
	val, err = s.db.Get([]byte(KeyBountyCount))
	if err != nil {
		if err != leveldb.ErrNotFound {
			return err
		}
	}
	s.bountyCount = new(big.Int).SetBytes(val).Uint64()
	val, err = s.db.Get([]byte(KeyBountyValueMin))
	if err != nil {
		if err != leveldb.ErrNotFound {
			return err
		}
	}
	if val != nil {
		s.bountyValueMin = new(big.Int).SetBytes(val).Uint64()
		s.bountyValueMinSet = true
	}
	val, err = s.db.Get([]byte(KeyState))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val != nil {
		err = json.Unmarshal(val, s.header)
		if err != nil {
			return
		}
		h := s.db.Hash()
		if h != nil {
			s.calcHash(h, true)
		}
	}
	return
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		if s.header.RootHash == nil {
			s.header.RootHash = make([]byte, len(rootHash))
		}
		copy(s.header.RootHash, rootHash)
		if s.header.Hash == nil {
			s.header.Hash = make([]byte, len(h))
		}
		copy(s.header.Hash, h[:])
	}
	return
}

// Update writes all staged mutations into the working tree and returns
// the prospective state hash. The tree is rolled back on failure.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	var val []byte
	val, err = json.Marshal(s.header)
	if err != nil {
		return
	}
	_, err = s.db.Set([]byte(KeyState), val)
	if err != nil {
		return
	}

	if s.proposalCountDirty {
		if _, err = s.db.Set([]byte(KeyProposalCount), big.NewInt(int64(s.proposalCount)).Bytes()); err != nil {
			return
		}
	}
	if s.bountyCountDirty {
		if _, err = s.db.Set([]byte(KeyBountyCount), big.NewInt(int64(s.bountyCount)).Bytes()); err != nil {
			return
		}
	}
	if s.bountyValueMinDirty {
		if _, err = s.db.Set([]byte(KeyBountyValueMin), big.NewInt(int64(s.bountyValueMin)).Bytes()); err != nil {
			return
		}
	}

	if err = writeStaged(s.db, s.modProposals, func(idx uint64) string {
		return fmt.Sprintf(KeyProposalBody, idx)
	}); err != nil {
		return
	}
	if err = writeStaged(s.db, s.modBounties, func(idx uint64) string {
		return fmt.Sprintf(KeyBountyBody, idx)
	}); err != nil {
		return
	}
	if err = writeStagedBytes(s.db, s.modDescs, func(idx uint64) string {
		return fmt.Sprintf(KeyBountyDesc, idx)
	}); err != nil {
		return
	}
	if err = writeStaged(s.db, s.modTips, func(h common.Hash) string {
		return fmt.Sprintf(KeyTipBody, h[:])
	}); err != nil {
		return
	}
	if err = writeStagedBytes(s.db, s.modReasons, func(h common.Hash) string {
		return fmt.Sprintf(KeyReasonBody, h[:])
	}); err != nil {
		return
	}

	if s.approvalsDirty {
		val, _ = json.Marshal(s.approvals)
		if _, err = s.db.Set([]byte(KeyApprovals), val); err != nil {
			return
		}
	}
	if s.bountyApprovalsDirty {
		val, _ = json.Marshal(s.bountyApprovals)
		if _, err = s.db.Set([]byte(KeyBountyApprovals), val); err != nil {
			return
		}
	}

	n := len(s.modifiedAcnts)
	if n > 0 {
		idxs := make([]uint64, n)
		i := 0
		for idx := range s.modifiedAcnts {
			idxs[i] = idx
			i += 1
		}
		sort.Slice(idxs, func(i, j int) bool {
			return idxs[i] < idxs[j]
		})
		for _, idx := range idxs {
			flag := s.modifiedAcnts[idx]
			acnt := s.acnts[idx]
			key := fmt.Sprintf(KeyAccountBody, acnt.Index)
			val, err = rlp.EncodeToBytes(acnt)
			if err != nil {
				return
			}
			_, err = s.db.Set([]byte(key), val)
			if err != nil {
				return
			}
			if (flag&ModifiedFlagNew == ModifiedFlagNew) || (flag&ModifiedFlagPK == ModifiedFlagPK) {
				key = fmt.Sprintf(KeyAccountIndex, acnt.Address())
				val, err = rlp.EncodeToBytes(acnt.Index)
				if err != nil {
					return
				}
				_, err = s.db.Set([]byte(key), val)
				if err != nil {
					return
				}
			}
		}
	}
	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.modifiedAcnts = make(map[uint64]uint32)
	return
}

func sortedKeys[K comparable, V any](m map[K]V, less func(a, b K) bool) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}

func stagedLess[K comparable](a, b K) bool {
	switch x := any(a).(type) {
	case uint64:
		return x < any(b).(uint64)
	case common.Hash:
		y := any(b).(common.Hash)
		return bytes.Compare(x[:], y[:]) < 0
	}
	return false
}

func writeStaged[K comparable, V any](db *iavl.MutableTree, staged map[K]*V, keyOf func(K) string) error {
	for _, k := range sortedKeys(staged, stagedLess[K]) {
		key := []byte(keyOf(k))
		v := staged[k]
		if v == nil {
			if _, _, err := db.Remove(key); err != nil {
				return err
			}
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err = db.Set(key, raw); err != nil {
			return err
		}
	}
	return nil
}

func writeStagedBytes[K comparable](db *iavl.MutableTree, staged map[K][]byte, keyOf func(K) string) error {
	for _, k := range sortedKeys(staged, stagedLess[K]) {
		key := []byte(keyOf(k))
		v := staged[k]
		if v == nil {
			if _, _, err := db.Remove(key); err != nil {
				return err
			}
			continue
		}
		if _, err := db.Set(key, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

func (s *State) GetAccount(idx uint64) (acnt *Account, err error) {
	if idx >= s.header.AccountIdx {
		err = ErrAccountNoexists
		return
	}
	acnt = s.acnts[idx]
	if acnt != nil {
		return
	}
	key := fmt.Sprintf(KeyAccountBody, idx)
	val, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	if val == nil {
		err = ErrNotFound
		return
	}
	acnt = new(Account)
	err = rlp.DecodeBytes(val, acnt)
	if err != nil {
		acnt = nil
		return
	}
	s.acnts[idx] = acnt
	return
}

func (s *State) FindAccount(addr []byte) (acnt *Account, err error) {
	saddr := cmtcrypto.Address(addr).String()
	idx, ok := s.idxs[saddr]
	if !ok {
		key := fmt.Sprintf(KeyAccountIndex, saddr)
		val, err := s.db.Get([]byte(key))
		if err != nil {
			if err == leveldb.ErrNotFound {
				return nil, nil
			}
			return nil, err
		}
		if val == nil {
			for _, acc := range s.acnts {
				if bytes.Equal(acc.AddrBytes(), addr) {
					return acc, nil
				}
			}
			return nil, nil
		}
		err = rlp.DecodeBytes(val, &idx)
		if err != nil {
			return nil, err
		}
		s.idxs[saddr] = idx
	}
	acnt, err = s.GetAccount(idx)

	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) Params() config.TreasuryParams {
	return s.params
}

func (s *State) AddAccount(acnt *Account) (err error) {
	a, err := s.FindAccount(acnt.AddrBytes())
	if err != nil {
		return err
	}
	if a != nil {
		err = ErrAccountAlreadyExists
		return
	}
	acnt.Index = s.header.AccountIdx
	s.header.AccountIdx += 1
	s.acnts[acnt.Index] = acnt.Clone()
	s.modifiedAcnts[acnt.Index] = ModifiedFlagNew
	return
}

func (s *State) touchAccount(a *Account) {
	s.acnts[a.Index] = a.Clone()
	s.modifiedAcnts[a.Index] |= ModifiedFlagMod
}

func (s *State) bumpNonce(a *Account) {
	a.Nonce += 1
	s.touchAccount(a)
}

// Verify checks the caller account, nonce and envelope signature.
func (s *State) Verify(btx *tx.TreasuryTx, allowNonceGap bool) (succ bool, err error) {
	a, err := s.GetAccount(btx.Caller)
	if err != nil {
		return succ, err
	}
	if a == nil {
		err = ErrTxCallerNoexists
		return
	}
	if !(a.Nonce == btx.Nonce || (allowNonceGap && a.Nonce < btx.Nonce)) {
		err = ErrTxNonceInvalid
		return
	}
	dat, err := btx.SigData([]byte(s.header.ChainId))
	if err != nil {
		return succ, err
	}
	succ = a.Verify(dat, btx.Sig)
	if !succ {
		err = ErrTxSigInvalid
	}
	return
}

// ValidatorAccounts resolves the current validator set to accounts.
func (s *State) ValidatorAccounts() (acounts []*Account, height uint64, err error) {
	vals := s.validators
	for _, val := range vals {
		pk := ed25519.PubKey(val.PubKey.GetEd25519()[:])
		addr := pk.Address()[:]
		act, _ := s.FindAccount(addr)
		if act != nil {
			acounts = append(acounts, act)
		}
	}
	height = s.header.Height
	return
}

func (s *State) SetValidators(vals []abci_types.ValidatorUpdate) {
	s.validators = vals
}
