package handler

import (
	"github.com/gin-gonic/gin"

	"lendtrack/internal/domain"
	"lendtrack/internal/service"
)

type CatalogHandler struct {
	svc    *service.CatalogService
	policy *service.Policy
}

func NewCatalogHandler(svc *service.CatalogService, policy *service.Policy) *CatalogHandler {
	return &CatalogHandler{svc: svc, policy: policy}
}

func (h *CatalogHandler) ListItems(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	items, err := h.svc.List(c.Request.Context(), cl, c.Query("search"))
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, items)
}

func (h *CatalogHandler) GetItem(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	id, err := paramUint(c, "id")
	if err != nil {
		writeErr(c, err)
		return
	}
	it, err := h.svc.Get(c.Request.Context(), cl, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, it)
}

type createItemReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *CatalogHandler) CreateItem(c *gin.Context) {
	if _, ok := caller(c, h.policy); !ok {
		return
	}
	var req createItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("name is required"))
		return
	}
	items, err := h.svc.CreateItem(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, items)
}

type updateItemReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

func (h *CatalogHandler) UpdateItem(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	id, err := queryUint(c, "id")
	if err != nil {
		writeErr(c, err)
		return
	}
	var req updateItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("malformed body"))
		return
	}
	items, err := h.svc.UpdateItem(c.Request.Context(), cl, id, service.UpdateItemInput{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, items)
}

func (h *CatalogHandler) ListUnits(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	itemID, err := queryUint(c, "itemId")
	if err != nil {
		writeErr(c, err)
		return
	}
	units, err := h.svc.Units(c.Request.Context(), cl, itemID)
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, units)
}

type createUnitReq struct {
	ItemID uint   `json:"itemId" binding:"required"`
	Serial string `json:"serial" binding:"required"`
}

func (h *CatalogHandler) CreateUnit(c *gin.Context) {
	if _, ok := caller(c, h.policy); !ok {
		return
	}
	var req createUnitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("itemId and serial are required"))
		return
	}
	units, err := h.svc.CreateUnit(c.Request.Context(), req.ItemID, req.Serial)
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, units)
}

type updateUnitReq struct {
	Serial *string `json:"serial"`
	Active *bool   `json:"active"`
}

func (h *CatalogHandler) UpdateUnit(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	id, err := queryUint(c, "id")
	if err != nil {
		writeErr(c, err)
		return
	}
	var req updateUnitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("malformed body"))
		return
	}
	units, err := h.svc.UpdateUnit(c.Request.Context(), cl, id, service.UpdateUnitInput{
		Serial: req.Serial,
		Active: req.Active,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, units)
}
