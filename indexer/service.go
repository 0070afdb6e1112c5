package indexer

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
}

func NewService(listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getTips", s.handleGetTips)
	s.engine.POST("/getBounties", s.handleGetBounties)
	s.engine.POST("/getSettlements", s.handleGetSettlements)
	return s
}

func (s *Service) Start() {
	s.engine.Run(s.listenAddr)
}

type GetProposalsReq struct {
	ProposalId uint64 `json:"proposalId"`
	Proposer   string `json:"proposer"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

type GetProposalResponse struct {
	Proposals []Proposal `json:"proposals"`
	Total     uint64     `json:"total"`
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var response GetProposalResponse
	response.Proposals = make([]Proposal, 0)
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if requestData.ProposalId != 0 {
		proposal, err := s.indexer.getProposalById(requestData.ProposalId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, proposal)
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}

	var err error
	if requestData.Proposer != "" {
		response.Proposals, response.Total, err = s.indexer.getProposalsByProposer(requestData.Proposer, requestData.Page, requestData.PageSize)
	} else {
		response.Proposals, response.Total, err = s.indexer.getProposals(requestData.Page, requestData.PageSize)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, response)
}

type GetTipsReq struct {
	Hash     string `json:"hash"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetTipsResponse struct {
	Tips  []Tip  `json:"tips"`
	Total uint64 `json:"total"`
}

func (s *Service) handleGetTips(c *gin.Context) {
	var response GetTipsResponse
	response.Tips = make([]Tip, 0)
	var requestData GetTipsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if requestData.Hash != "" {
		tip, err := s.indexer.getTipByHash(requestData.Hash)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Tips = append(response.Tips, tip)
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}

	tips, total, err := s.indexer.getTips(requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Tips = tips
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type GetBountiesReq struct {
	BountyId uint64 `json:"bountyId"`
	Parent   uint64 `json:"parent"`
	Sub      bool   `json:"sub"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetBountiesResponse struct {
	Bounties []Bounty `json:"bounties"`
	Total    uint64   `json:"total"`
}

func (s *Service) handleGetBounties(c *gin.Context) {
	var response GetBountiesResponse
	response.Bounties = make([]Bounty, 0)
	var requestData GetBountiesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if requestData.BountyId != 0 {
		bounty, err := s.indexer.getBountyById(requestData.BountyId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Bounties = append(response.Bounties, bounty)
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}

	var err error
	if requestData.Sub {
		response.Bounties, response.Total, err = s.indexer.getSubBounties(requestData.Parent, requestData.Page, requestData.PageSize)
	} else {
		response.Bounties, response.Total, err = s.indexer.getBounties(requestData.Page, requestData.PageSize)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, response)
}

type GetSettlementsReq struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

type GetSettlementsResponse struct {
	Settlements []Settlement `json:"settlements"`
	Total       uint64       `json:"total"`
}

func (s *Service) handleGetSettlements(c *gin.Context) {
	var response GetSettlementsResponse
	response.Settlements = make([]Settlement, 0)
	var requestData GetSettlementsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settlements, total, err := s.indexer.getSettlements(requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Settlements = settlements
	response.Total = total
	c.JSON(http.StatusOK, response)
}
