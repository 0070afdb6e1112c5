package indexer

import (
	"context"
	"errors"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/cometbft/cometbft/store"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"

	"github.com/mossline/treasury-app/types"
)

type ChainIndexer struct {
	logger        cmtlog.Logger
	Url           string
	Height        int64
	db            *gorm.DB
	cli           *comethttp.HTTP
	eventHandlers map[string]eventHandler
	BlockStore    *store.BlockStore
	ChainId       string
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string, bs *store.BlockStore) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath, "url", chainUrl)
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Height{}, &Proposal{}, &Tip{}, &Bounty{}, &Settlement{}).Error; err != nil {
		return nil, err
	}
	h := Height{Id: 1}
	if err = db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ctx := context.Background()
	gres, err := cli.Genesis(ctx)
	if err != nil {
		logger.Error("get genesis fail", "err", err)
		return nil, err
	}
	chainId := gres.Genesis.ChainID

	c := ChainIndexer{
		logger:        logger.With("module", "indexer"),
		Url:           chainUrl,
		Height:        int64(h.Height + 1),
		db:            db,
		cli:           cli,
		eventHandlers: map[string]eventHandler{},
		BlockStore:    bs,
		ChainId:       chainId,
	}

	c.eventHandlers = map[string]eventHandler{
		types.EventProposedType:       c.handleEventProposed,
		types.EventAwardedType:        c.handleEventAwarded,
		types.EventRejectedType:       c.handleEventRejected,
		types.EventNewTipType:         c.handleEventNewTip,
		types.EventTipClosingType:     c.handleEventTipClosing,
		types.EventTipClosedType:      c.handleEventTipClosed,
		types.EventTipRetractedType:   c.handleEventTipRetracted,
		types.EventBountyProposedType: c.handleEventBountyProposed,
		types.EventBountyRejectedType: c.handleEventBountyRejected,
		types.EventBountyActiveType:   c.handleEventBountyBecameActive,
		types.EventBountyAwardedType:  c.handleEventBountyAwarded,
		types.EventBountyClaimedType:  c.handleEventBountyClaimed,
		types.EventBountyCanceledType: c.handleEventBountyCanceled,
		types.EventBountyExtendedType: c.handleEventBountyExtended,
		types.EventSpendingType:       c.handleEventSpending,
		types.EventBurntType:          c.handleEventBurnt,
		types.EventRolloverType:       c.handleEventRollover,
	}
	return &c, nil
}

type eventHandler func(ctx context.Context, event abci.Event, height int64)

func (c *ChainIndexer) handleEvent(ctx context.Context, event abci.Event, height int64) {
	if handler, ok := c.eventHandlers[event.Type]; ok {
		handler(ctx, event, height)
	}
}

func (c *ChainIndexer) handleEventProposed(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventProposed(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	proposal := Proposal{
		Idx:             ev.Proposal,
		Proposer:        ev.Proposer,
		Value:           ev.Value,
		Beneficiary:     ev.Beneficiary,
		Bond:            ev.Bond,
		Status:          ProposalStatusPending,
		ProposeHeight:   uint64(height),
		CreateTimestamp: time.Now().Unix(),
	}
	if err := c.db.Save(&proposal).Error; err != nil {
		c.logger.Error("save proposal fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventAwarded(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventAwarded(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var proposal Proposal
	if err := c.db.Where("idx = ?", ev.Proposal).First(&proposal).Error; err != nil {
		c.logger.Error("get proposal fail", "err", err)
		return
	}
	proposal.Status = ProposalStatusAwarded
	proposal.SettleHeight = uint64(height)
	if err := c.db.Save(&proposal).Error; err != nil {
		c.logger.Error("save proposal fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventRejected(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventRejected(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var proposal Proposal
	if err := c.db.Where("idx = ?", ev.Proposal).First(&proposal).Error; err != nil {
		c.logger.Error("get proposal fail", "err", err)
		return
	}
	proposal.Status = ProposalStatusRejected
	proposal.Slashed = ev.Slashed
	proposal.SettleHeight = uint64(height)
	if err := c.db.Save(&proposal).Error; err != nil {
		c.logger.Error("save proposal fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventNewTip(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventNewTip(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	tip := Tip{
		Hash:            ev.Hash,
		Reason:          ev.Reason,
		Who:             ev.Who,
		Finder:          ev.Finder,
		Status:          TipStatusOpen,
		OpenHeight:      uint64(height),
		CreateTimestamp: time.Now().Unix(),
	}
	if err := c.db.Save(&tip).Error; err != nil {
		c.logger.Error("save tip fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventTipClosing(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventTipClosing(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var tip Tip
	if err := c.db.Where("hash = ?", ev.Hash).First(&tip).Error; err != nil {
		c.logger.Error("get tip fail", "err", err)
		return
	}
	tip.Status = TipStatusClosing
	tip.ClosesAt = ev.ClosesAt
	if err := c.db.Save(&tip).Error; err != nil {
		c.logger.Error("save tip fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventTipClosed(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventTipClosed(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var tip Tip
	if err := c.db.Where("hash = ?", ev.Hash).First(&tip).Error; err != nil {
		c.logger.Error("get tip fail", "err", err)
		return
	}
	tip.Status = TipStatusClosed
	tip.Payout = ev.Payout
	tip.CloseHeight = uint64(height)
	if err := c.db.Save(&tip).Error; err != nil {
		c.logger.Error("save tip fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventTipRetracted(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventTipRetracted(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var tip Tip
	if err := c.db.Where("hash = ?", ev.Hash).First(&tip).Error; err != nil {
		c.logger.Error("get tip fail", "err", err)
		return
	}
	tip.Status = TipStatusRetracted
	tip.CloseHeight = uint64(height)
	if err := c.db.Save(&tip).Error; err != nil {
		c.logger.Error("save tip fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventBountyProposed(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventBountyProposed(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	status := BountyStatusProposed
	if ev.Sub {
		// child bounties skip the approval queue
		status = BountyStatusActive
	}
	bounty := Bounty{
		Idx:             ev.Bounty,
		Proposer:        ev.Proposer,
		Curator:         ev.Curator,
		Value:           ev.Value,
		Fee:             ev.Fee,
		Parent:          ev.Parent,
		Sub:             ev.Sub,
		Status:          status,
		ProposeHeight:   uint64(height),
		CreateTimestamp: time.Now().Unix(),
	}
	if err := c.db.Save(&bounty).Error; err != nil {
		c.logger.Error("save bounty fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventBountyRejected(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventBountyRejected(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var bounty Bounty
	if err := c.db.Where("idx = ?", ev.Bounty).First(&bounty).Error; err != nil {
		c.logger.Error("get bounty fail", "err", err)
		return
	}
	bounty.Status = BountyStatusRejected
	bounty.Slashed = ev.Slashed
	if err := c.db.Save(&bounty).Error; err != nil {
		c.logger.Error("save bounty fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventBountyBecameActive(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventBountyBecameActive(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var bounty Bounty
	if err := c.db.Where("idx = ?", ev.Bounty).First(&bounty).Error; err != nil {
		c.logger.Error("get bounty fail", "err", err)
		return
	}
	bounty.Status = BountyStatusActive
	bounty.Expires = ev.Expires
	bounty.SettleHeight = uint64(height)
	if err := c.db.Save(&bounty).Error; err != nil {
		c.logger.Error("save bounty fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventBountyAwarded(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventBountyAwarded(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var bounty Bounty
	if err := c.db.Where("idx = ?", ev.Bounty).First(&bounty).Error; err != nil {
		c.logger.Error("get bounty fail", "err", err)
		return
	}
	bounty.Status = BountyStatusPendingPayout
	bounty.Beneficiary = ev.Beneficiary
	bounty.UnlockAt = ev.UnlockAt
	if err := c.db.Save(&bounty).Error; err != nil {
		c.logger.Error("save bounty fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventBountyClaimed(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventBountyClaimed(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var bounty Bounty
	if err := c.db.Where("idx = ?", ev.Bounty).First(&bounty).Error; err != nil {
		c.logger.Error("get bounty fail", "err", err)
		return
	}
	bounty.Status = BountyStatusClaimed
	bounty.Payout = ev.Payout
	bounty.Beneficiary = ev.Beneficiary
	if err := c.db.Save(&bounty).Error; err != nil {
		c.logger.Error("save bounty fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventBountyCanceled(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventBountyCanceled(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var bounty Bounty
	if err := c.db.Where("idx = ?", ev.Bounty).First(&bounty).Error; err != nil {
		c.logger.Error("get bounty fail", "err", err)
		return
	}
	bounty.Status = BountyStatusCanceled
	bounty.Refunded = ev.Refunded
	if err := c.db.Save(&bounty).Error; err != nil {
		c.logger.Error("save bounty fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventBountyExtended(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventBountyExtended(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var bounty Bounty
	if err := c.db.Where("idx = ?", ev.Bounty).First(&bounty).Error; err != nil {
		c.logger.Error("get bounty fail", "err", err)
		return
	}
	bounty.Expires = ev.Expires
	if err := c.db.Save(&bounty).Error; err != nil {
		c.logger.Error("save bounty fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventSpending(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventSpending(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	settlement := Settlement{Height: uint64(height), Budget: ev.Budget}
	if err := c.db.Save(&settlement).Error; err != nil {
		c.logger.Error("save settlement fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventBurnt(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventBurnt(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var settlement Settlement
	if err := c.db.Where("height = ?", uint64(height)).First(&settlement).Error; err != nil {
		c.logger.Error("get settlement fail", "err", err)
		return
	}
	settlement.Burnt = ev.Amount
	if err := c.db.Save(&settlement).Error; err != nil {
		c.logger.Error("save settlement fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventRollover(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventRollover(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	var settlement Settlement
	if err := c.db.Where("height = ?", uint64(height)).First(&settlement).Error; err != nil {
		c.logger.Error("get settlement fail", "err", err)
		return
	}
	settlement.Remaining = ev.Remaining
	if err := c.db.Save(&settlement).Error; err != nil {
		c.logger.Error("save settlement fail", "err", err)
	}
}

func (c *ChainIndexer) Start(ctx context.Context) {
	var err error
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.cli == nil {
				c.cli, err = comethttp.New(c.Url, "/websocket")
				if err != nil {
					c.logger.Error("connect fail", "err", err)
					continue
				}
			}
			b, err := c.cli.Status(context.TODO())
			if err != nil {
				c.logger.Error("get status fail", "err", err)
				if !c.cli.IsRunning() {
					c.cli.Stop()
					c.cli, err = comethttp.New(c.Url, "/websocket")
					if err != nil {
						c.logger.Error("reconnect fail", "err", err)
					}
				}
				continue
			}
			for b.SyncInfo.LatestBlockHeight > c.Height {
				time.Sleep(time.Millisecond * 100)
				c.logger.Info("indexer syncing", "height", c.Height)
				results, err := c.cli.BlockResults(ctx, &c.Height)
				if err != nil {
					c.logger.Error("get block results fail", "err", err)
					if !c.cli.IsRunning() {
						c.cli.Stop()
						c.cli, err = comethttp.New(c.Url, "/websocket")
						if err != nil {
							c.logger.Error("reconnect fail", "err", err)
						}
					}
					break
				}
				for _, res := range results.TxsResults {
					for _, event := range res.Events {
						c.handleEvent(ctx, event, c.Height)
					}
				}
				// settlement events are emitted at the block level
				for _, event := range results.FinalizeBlockEvents {
					c.handleEvent(ctx, event, c.Height)
				}
				if err := c.db.Save(Height{
					Id:     1,
					Height: uint64(c.Height),
				}).Error; err != nil {
					c.logger.Error("save height fail", "err", err)
					continue
				}
				c.Height++
			}
		}
	}
}

func (c *ChainIndexer) getProposals(page int, pageSize int) ([]Proposal, uint64, error) {
	var proposals []Proposal
	err := c.db.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Proposal{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalById(proposalId uint64) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("idx = ?", proposalId).First(&proposal).Error
	if err != nil {
		return Proposal{}, err
	}
	return proposal, nil
}

func (c *ChainIndexer) getProposalsByProposer(proposer string, page int, pageSize int) ([]Proposal, uint64, error) {
	var proposals []Proposal
	err := c.db.Where("proposer = ?", proposer).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&proposals).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Proposal{}).Where("proposer = ?", proposer).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getTips(page int, pageSize int) ([]Tip, uint64, error) {
	var tips []Tip
	err := c.db.Order("open_height desc").Offset(page * pageSize).Limit(pageSize).Find(&tips).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Tip{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return tips, total, nil
}

func (c *ChainIndexer) getTipByHash(hash string) (Tip, error) {
	var tip Tip
	err := c.db.Where("hash = ?", hash).First(&tip).Error
	if err != nil {
		return Tip{}, err
	}
	return tip, nil
}

func (c *ChainIndexer) getBounties(page int, pageSize int) ([]Bounty, uint64, error) {
	var bounties []Bounty
	err := c.db.Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&bounties).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Bounty{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return bounties, total, nil
}

func (c *ChainIndexer) getBountyById(bountyId uint64) (Bounty, error) {
	var bounty Bounty
	err := c.db.Where("idx = ?", bountyId).First(&bounty).Error
	if err != nil {
		return Bounty{}, err
	}
	return bounty, nil
}

func (c *ChainIndexer) getSubBounties(parent uint64, page int, pageSize int) ([]Bounty, uint64, error) {
	var bounties []Bounty
	err := c.db.Where("parent = ? AND sub = ?", parent, true).Order("id desc").Offset(page * pageSize).Limit(pageSize).Find(&bounties).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Bounty{}).Where("parent = ? AND sub = ?", parent, true).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return bounties, total, nil
}

func (c *ChainIndexer) getSettlements(page int, pageSize int) ([]Settlement, uint64, error) {
	var settlements []Settlement
	err := c.db.Order("height desc").Offset(page * pageSize).Limit(pageSize).Find(&settlements).Error
	if err != nil {
		return nil, 0, err
	}
	var total uint64
	err = c.db.Model(&Settlement{}).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}
	return settlements, total, nil
}
