package message

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chathub/logger"
	midsec "chathub/middleware/security"
	"chathub/service/chat"
	"chathub/tools/errs"
)

// HistoryHandler serves recent room history over REST, guarded by the same
// token check as the WebSocket handshake plus a membership check.
type HistoryHandler struct {
	Store  *Store
	Oracle chat.RoomOracle
}

// Recent handles GET /rooms/:roomId/messages?limit=n.
func (h *HistoryHandler) Recent(c *gin.Context) {
	userID := c.GetString(midsec.CtxUserIDKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
		return
	}
	roomID := c.Param("roomId")
	if !h.Oracle.IsMember(c.Request.Context(), userID, roomID) {
		c.JSON(http.StatusForbidden, errs.ErrUnauthorized)
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	msgs, err := h.Store.Recent(c.Request.Context(), roomID, limit)
	if err != nil {
		logger.Errorf("[history] room=%s err=%v", roomID, err)
		c.JSON(http.StatusInternalServerError, errs.ErrMessageHandling)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
