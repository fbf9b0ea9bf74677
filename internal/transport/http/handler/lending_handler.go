package handler

import (
	"github.com/gin-gonic/gin"

	"lendtrack/internal/domain"
	"lendtrack/internal/repo"
	"lendtrack/internal/service"
)

type LendingHandler struct {
	svc    *service.LendingService
	policy *service.Policy
}

func NewLendingHandler(svc *service.LendingService, policy *service.Policy) *LendingHandler {
	return &LendingHandler{svc: svc, policy: policy}
}

func (h *LendingHandler) List(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	var f repo.LoanFilter
	if c.Query("personId") != "" {
		id, err := queryUint(c, "personId")
		if err != nil {
			writeErr(c, err)
			return
		}
		f.PersonID = id
	}
	if c.Query("requesterId") != "" {
		id, err := queryUint(c, "requesterId")
		if err != nil {
			writeErr(c, err)
			return
		}
		f.RequesterID = id
	}
	f.Serial = c.Query("search")
	loans, err := h.svc.List(c.Request.Context(), cl, f)
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, loans)
}

func (h *LendingHandler) Get(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	id, err := paramUint(c, "id")
	if err != nil {
		writeErr(c, err)
		return
	}
	loan, err := h.svc.Get(c.Request.Context(), cl, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, loan)
}

type createLoanReq struct {
	LoanDate    string `json:"loanDate" binding:"required"`
	PersonID    uint   `json:"personId" binding:"required"`
	Patrimonies []uint `json:"patrimonies" binding:"required"`
	Reason      string `json:"reason"`
}

func (h *LendingHandler) Create(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	var req createLoanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("loanDate, personId and patrimonies are required"))
		return
	}
	when, err := parseDate(req.LoanDate)
	if err != nil {
		writeErr(c, domain.InvalidArgument("invalid loanDate"))
		return
	}
	loan, err := h.svc.Create(c.Request.Context(), cl, service.CreateLoanInput{
		LoanDate: when,
		PersonID: req.PersonID,
		UnitIDs:  req.Patrimonies,
		Reason:   req.Reason,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, loan)
}

type addUnitsReq struct {
	Patrimonies []uint `json:"patrimonies" binding:"required"`
}

func (h *LendingHandler) AddUnits(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	id, err := queryUint(c, "id")
	if err != nil {
		writeErr(c, err)
		return
	}
	var req addUnitsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("patrimonies are required"))
		return
	}
	loan, err := h.svc.AddUnits(c.Request.Context(), cl, id, req.Patrimonies)
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, loan)
}

type swapReq struct {
	OldPatrimonies []uint `json:"oldPatrimonies"`
	NewPatrimonies []uint `json:"newPatrimonies" binding:"required"`
	PersonID       *uint  `json:"personId"`
	Active         *bool  `json:"active"`
}

// Swap replaces units on an open loan one-for-one, optionally moving the loan
// to another borrower or cancelling it in the same call. The outgoing unit
// ids may come in the body or as the patrimonios query parameter.
func (h *LendingHandler) Swap(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	id, err := queryUint(c, "id")
	if err != nil {
		writeErr(c, err)
		return
	}
	var req swapReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("newPatrimonies are required"))
		return
	}
	if len(req.OldPatrimonies) == 0 {
		old, err := queryUintList(c, "patrimonios")
		if err != nil {
			writeErr(c, err)
			return
		}
		req.OldPatrimonies = old
	}
	loan, err := h.svc.Swap(c.Request.Context(), cl, id, service.SwapInput{
		OldUnitIDs: req.OldPatrimonies,
		NewUnitIDs: req.NewPatrimonies,
		PersonID:   req.PersonID,
		Active:     req.Active,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, loan)
}

type returnReq struct {
	ReturnDate  string `json:"returnDate" binding:"required"`
	Patrimonies []uint `json:"patrimonies" binding:"required"`
}

func (h *LendingHandler) Return(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	id, err := queryUint(c, "id")
	if err != nil {
		writeErr(c, err)
		return
	}
	var req returnReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("returnDate and patrimonies are required"))
		return
	}
	when, err := parseDate(req.ReturnDate)
	if err != nil {
		writeErr(c, domain.InvalidArgument("invalid returnDate"))
		return
	}
	loan, err := h.svc.Return(c.Request.Context(), cl, id, service.ReturnInput{
		ReturnDate: when,
		UnitIDs:    req.Patrimonies,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, loan)
}
