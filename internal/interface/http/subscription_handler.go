package httpapi

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"stock-radar/internal/application/analysis"
	alertDomain "stock-radar/internal/domain/alert"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleSubscriptionList(c *gin.Context) {
	subs, err := s.subsStore.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	items := make([]gin.H, 0, len(subs))
	for _, sub := range subs {
		items = append(items, gin.H{
			"id":         sub.ID,
			"name":       sub.Name,
			"type":       string(sub.Type),
			"enabled":    sub.Enabled,
			"logic":      string(sub.Logic),
			"conditions": sub.Conditions,
			"symbol":     sub.Symbol,
			"threshold":  sub.Threshold,
			"channels":   sub.Channels,
			"created_at": sub.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}

func (s *Server) handleSubscriptionCreate(c *gin.Context) {
	var body struct {
		ID         string               `json:"id"`
		Name       string               `json:"name"`
		Type       string               `json:"type"`
		Logic      string               `json:"logic"`
		Conditions []analysis.Condition `json:"conditions"`
		Symbol     string               `json:"symbol"`
		Threshold  int                  `json:"threshold"`
		Channels   []string             `json:"channels"`
		WebhookURL string               `json:"webhook_url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	if body.ID == "" {
		body.ID = fmt.Sprintf("sub-%d", time.Now().UnixNano())
	}
	channels := make([]alertDomain.Channel, 0, len(body.Channels))
	for _, ch := range body.Channels {
		channels = append(channels, alertDomain.Channel(ch))
	}

	sub := alertDomain.Subscription{
		ID:         body.ID,
		Name:       body.Name,
		Type:       alertDomain.SubscriptionType(body.Type),
		Enabled:    true,
		Logic:      analysis.BoolLogic(body.Logic),
		Conditions: body.Conditions,
		Symbol:     body.Symbol,
		Threshold:  body.Threshold,
		Channels:   channels,
		WebhookURL: body.WebhookURL,
		CreatedAt:  time.Now(),
	}
	if sub.Logic == "" {
		sub.Logic = analysis.LogicAND
	}
	if err := sub.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	if err := s.subsStore.Save(c.Request.Context(), sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": sub.ID})
}

func (s *Server) handleSubscriptionDelete(c *gin.Context) {
	id := c.Param("id")
	if err := s.subsStore.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleAlertsRun 手動觸發一次所有訂閱的掃描與通知。
func (s *Server) handleAlertsRun(c *gin.Context) {
	var body struct {
		Date string `json:"date"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	date, err := time.Parse(dateLayout, body.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid date", "error_code": errCodeBadRequest})
		return
	}

	if err := s.alertEngine.Run(c.Request.Context(), date); err != nil {
		log.Printf("[Alert] run failed for %s: %v", body.Date, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "date": body.Date})
}
