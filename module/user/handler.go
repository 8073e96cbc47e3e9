package user

import (
	"net/http"

	midsec "LinkChat/middleware/security"
	userservice "LinkChat/module/user/service"
	"LinkChat/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	users *userservice.Service
}

func NewHandler(users *userservice.Service) *Handler {
	return &Handler{users: users}
}

// Signup POST /api/auth/signup
func (h *Handler) Signup(c *gin.Context) {
	var in userservice.SignupParams
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	u, token, err := h.users.Signup(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"userData": u,
		"token":    token,
		"message":  "account created successfully",
	})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	u, token, err := h.users.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "userData": u, "token": token})
}

// Check GET /api/auth/check — token validity probe, returns the caller.
func (h *Handler) Check(c *gin.Context) {
	u, err := h.users.GetByID(c.Request.Context(), midsec.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

// UpdateProfile PUT /api/auth/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	var in userservice.ProfileUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), midsec.UserID(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

func fail(c *gin.Context, err error) {
	if ce, ok := errs.Unwrap(err); ok {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": ce.Msg, "code": ce.Code})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
}
