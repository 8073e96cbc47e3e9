package chat

import (
	"net/http"
	"strings"

	midsec "LinkChat/middleware/security"
	"LinkChat/module/chat/message"
	chatmodel "LinkChat/module/chat/model"
	"LinkChat/module/media"
	userservice "LinkChat/module/user/service"
	chatsvc "LinkChat/service/chat"
	"LinkChat/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	store    *message.Store
	router   *chatsvc.Router
	users    *userservice.Service
	uploader media.Uploader
}

func NewHandler(store *message.Store, router *chatsvc.Router, users *userservice.Service, uploader media.Uploader) *Handler {
	return &Handler{store: store, router: router, users: users, uploader: uploader}
}

// GetConversations GET /conversations — contact list plus initial unseen counts.
func (h *Handler) GetConversations(c *gin.Context) {
	self := midsec.UserID(c)
	ctx := c.Request.Context()

	users, err := h.users.ListOthers(ctx, self)
	if err != nil {
		fail(c, err)
		return
	}
	counts, err := h.store.ComputeInitialCounts(ctx, self)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"users":          users,
		"unseenMessages": counts,
	})
}

// GetMessages GET /messages/:id — full ordered history with counterpart :id.
// The backlog flips to seen before history is returned, so the next
// initial-count computation starts from zero for this pair.
func (h *Handler) GetMessages(c *gin.Context) {
	self := midsec.UserID(c)
	peer := c.Param("id")
	ctx := c.Request.Context()

	if err := h.store.MarkSeen(ctx, self, peer); err != nil {
		fail(c, err)
		return
	}
	msgs, err := h.store.QueryConversation(ctx, self, peer)
	if err != nil {
		fail(c, err)
		return
	}
	if msgs == nil {
		msgs = []chatmodel.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
}

type sendReq struct {
	Text  string `json:"text"`
	Image string `json:"image"` // data URI; uploaded before persistence
}

// SendMessage POST /messages/:id — persist then deliver to live connections.
func (h *Handler) SendMessage(c *gin.Context) {
	self := midsec.UserID(c)
	peer := c.Param("id")
	ctx := c.Request.Context()

	var in sendReq
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, errs.ErrValidation.WithDetail(err.Error()))
		return
	}

	msg := chatmodel.Message{
		SenderID:   self,
		ReceiverID: peer,
		Text:       strings.TrimSpace(in.Text),
		Image:      in.Image,
	}
	// the upload writes to disk, so malformed requests must bounce first
	if err := chatsvc.Validate(msg); err != nil {
		fail(c, err)
		return
	}
	if in.Image != "" {
		url, err := h.uploader.Upload(ctx, in.Image)
		if err != nil {
			fail(c, err)
			return
		}
		msg.Image = url
	}

	res, err := h.router.Deliver(ctx, msg)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": res.Message})
}

// MarkMessage PUT /messages/mark/:id — single-message seen override.
func (h *Handler) MarkMessage(c *gin.Context) {
	if err := h.store.MarkSeenByID(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func fail(c *gin.Context, err error) {
	if ce, ok := errs.Unwrap(err); ok {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": ce.Msg, "code": ce.Code})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
}
