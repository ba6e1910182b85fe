package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poppacare/poppa-backend/internal/services"
	"github.com/poppacare/poppa-backend/internal/types"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type createUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Sex       string `json:"sex"`
	Age       int64  `json:"age"`
	Language  string `json:"language"`
}

func (uh *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	user, err := uh.userService.Create(c.Request.Context(), types.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      req.Role,
		Sex:       req.Sex,
		Age:       req.Age,
		Language:  req.Language,
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, "CREATE_USER_FAILED", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (uh *UserHandler) Get(c *gin.Context) {
	user, err := uh.userService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "GET_USER_FAILED", err)
		return
	}
	if user == nil {
		RespondError(c, http.StatusNotFound, "USER_NOT_FOUND", fmt.Errorf("user not found"))
		return
	}
	RespondOK(c, gin.H{"user": user})
}

func (uh *UserHandler) Update(c *gin.Context) {
	var update types.UserUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	user, err := uh.userService.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "UPDATE_USER_FAILED", err)
		return
	}
	if user == nil {
		RespondError(c, http.StatusNotFound, "USER_NOT_FOUND", fmt.Errorf("user not found"))
		return
	}
	RespondOK(c, gin.H{"user": user})
}

func (uh *UserHandler) Delete(c *gin.Context) {
	if err := uh.userService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, http.StatusInternalServerError, "DELETE_USER_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

// Metadata is phone-keyed: the agent and the webhook only ever know the
// sender's number.
func (uh *UserHandler) Metadata(c *gin.Context) {
	metadata, err := uh.userService.Metadata(c.Request.Context(), c.Param("phone"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "GET_METADATA_FAILED", err)
		return
	}
	if metadata == nil {
		RespondError(c, http.StatusNotFound, "USER_NOT_FOUND", fmt.Errorf("user not found"))
		return
	}
	RespondOK(c, gin.H{"metadata": metadata})
}

func (uh *UserHandler) Elders(c *gin.Context) {
	elders, err := uh.userService.Elders(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "GET_ELDERS_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"elders": elders})
}

type caresForRequest struct {
	ElderID string `json:"elderId"`
}

func (uh *UserHandler) CaresFor(c *gin.Context) {
	var req caresForRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", err)
		return
	}
	if req.ElderID == "" {
		RespondError(c, http.StatusBadRequest, "INVALID_BODY", fmt.Errorf("elderId required"))
		return
	}
	if err := uh.userService.LinkCaretaker(c.Request.Context(), c.Param("id"), req.ElderID); err != nil {
		RespondError(c, http.StatusBadRequest, "CARES_FOR_FAILED", err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
