package handler

import (
	"github.com/gin-gonic/gin"

	"lendtrack/internal/domain"
	"lendtrack/internal/service"
)

type PersonHandler struct {
	svc    *service.PersonService
	policy *service.Policy
}

func NewPersonHandler(svc *service.PersonService, policy *service.Policy) *PersonHandler {
	return &PersonHandler{svc: svc, policy: policy}
}

func (h *PersonHandler) List(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	people, err := h.svc.List(c.Request.Context(), cl, c.Query("search"))
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, people)
}

func (h *PersonHandler) Get(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	id, err := paramUint(c, "id")
	if err != nil {
		writeErr(c, err)
		return
	}
	p, err := h.svc.Get(c.Request.Context(), cl, id)
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, p)
}

type personReq struct {
	Name       string `json:"name" binding:"required"`
	Phone1     string `json:"phone1"`
	Phone2     string `json:"phone2"`
	PostalCode string `json:"postalCode"`
	Street     string `json:"street"`
	District   string `json:"district"`
	Complement string `json:"complement"`
	Number     string `json:"number"`
	Document   string `json:"document" binding:"required"`
	RG         string `json:"rg"`
}

func (h *PersonHandler) Create(c *gin.Context) {
	if _, ok := caller(c, h.policy); !ok {
		return
	}
	var req personReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("name and document are required"))
		return
	}
	people, err := h.svc.Create(c.Request.Context(), service.PersonInput{
		Name:       req.Name,
		Phone1:     req.Phone1,
		Phone2:     req.Phone2,
		PostalCode: req.PostalCode,
		Street:     req.Street,
		District:   req.District,
		Complement: req.Complement,
		Number:     req.Number,
		Document:   req.Document,
		RG:         req.RG,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, people)
}

type updatePersonReq struct {
	Name       *string `json:"name"`
	Phone1     *string `json:"phone1"`
	Phone2     *string `json:"phone2"`
	PostalCode *string `json:"postalCode"`
	Street     *string `json:"street"`
	District   *string `json:"district"`
	Complement *string `json:"complement"`
	Number     *string `json:"number"`
	Document   *string `json:"document"`
	RG         *string `json:"rg"`
	Active     *bool   `json:"active"`
}

func (h *PersonHandler) Update(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	id, err := queryUint(c, "id")
	if err != nil {
		writeErr(c, err)
		return
	}
	var req updatePersonReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("malformed body"))
		return
	}
	people, err := h.svc.Update(c.Request.Context(), cl, id, service.UpdatePersonInput{
		Name:       req.Name,
		Phone1:     req.Phone1,
		Phone2:     req.Phone2,
		PostalCode: req.PostalCode,
		Street:     req.Street,
		District:   req.District,
		Complement: req.Complement,
		Number:     req.Number,
		Document:   req.Document,
		RG:         req.RG,
		Active:     req.Active,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, people)
}
