package handler

import (
	"github.com/gin-gonic/gin"

	"lendtrack/internal/domain"
	"lendtrack/internal/service"
)

type OperatorHandler struct {
	svc    *service.OperatorService
	policy *service.Policy
}

func NewOperatorHandler(svc *service.OperatorService, policy *service.Policy) *OperatorHandler {
	return &OperatorHandler{svc: svc, policy: policy}
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *OperatorHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("email and password are required"))
		return
	}
	out, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, out)
}

// Home returns the caller's own profile, used by the UI after login.
func (h *OperatorHandler) Home(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	op, err := h.svc.Profile(c.Request.Context(), cl)
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, op)
}

func (h *OperatorHandler) List(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	ops, err := h.svc.List(c.Request.Context(), cl, c.Query("search"))
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, ops)
}

type createOperatorReq struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Admin    bool   `json:"admin"`
}

func (h *OperatorHandler) Create(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	var req createOperatorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("name, email and a password of at least 6 characters are required"))
		return
	}
	ops, err := h.svc.Create(c.Request.Context(), cl, service.CreateOperatorInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Password: req.Password,
		Admin:    req.Admin,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, ops)
}

type updateOperatorReq struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Email  *string `json:"email"`
	Admin  *bool   `json:"admin"`
	Active *bool   `json:"active"`
}

func (h *OperatorHandler) Update(c *gin.Context) {
	cl, ok := caller(c, h.policy)
	if !ok {
		return
	}
	id, err := queryUint(c, "id")
	if err != nil {
		writeErr(c, err)
		return
	}
	var req updateOperatorReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("malformed body"))
		return
	}
	ops, err := h.svc.Update(c.Request.Context(), cl, id, service.UpdateOperatorInput{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Admin:  req.Admin,
		Active: req.Active,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, ops)
}

type recoverReq struct {
	Email string `json:"email" binding:"required,email"`
}

// RecoverPassword always answers OK so the endpoint cannot be used to enumerate
// which emails exist. Delivery happens in the background.
func (h *OperatorHandler) RecoverPassword(c *gin.Context) {
	var req recoverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("email is required"))
		return
	}
	h.svc.RecoverPassword(c.Request.Context(), req.Email)
	writeOK(c, gin.H{"message": "if the email is registered, a reset link has been sent"})
}

type changePasswordReq struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *OperatorHandler) ChangePassword(c *gin.Context) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, domain.InvalidArgument("token and a password of at least 6 characters are required"))
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), req.Token, req.Password); err != nil {
		writeErr(c, err)
		return
	}
	writeOK(c, gin.H{"message": "password updated"})
}
