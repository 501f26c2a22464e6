package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paysettle/internal/domain"
	"paysettle/internal/models"
	"paysettle/pkg/monnify"
)

// SettingStore is the admin view of system_settings.
type SettingStore interface {
	GetAll(ctx context.Context) ([]models.SystemSetting, error)
	Set(ctx context.Context, key, value string, secret bool) error
}

type AdminHandler struct {
	settings SettingStore
	log      *zap.Logger
}

func NewAdminHandler(settings SettingStore, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{settings: settings, log: logger}
}

// editableSettings lists the keys an operator may change and whether they are secret.
var editableSettings = func() map[string]bool {
	m := map[string]bool{domain.SettingMonnifyMode: false}
	for _, mode := range []string{monnify.ModeTest, monnify.ModeLive} {
		m[fmt.Sprintf(domain.SettingMonnifyAPIKey, mode)] = true
		m[fmt.Sprintf(domain.SettingMonnifySecretKey, mode)] = true
		m[fmt.Sprintf(domain.SettingMonnifyContractCode, mode)] = false
	}
	return m
}()

// GetSettings handles GET /admin/settings. Secret values are never returned.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	list, err := h.settings.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load settings"})
		return
	}
	out := make([]gin.H, 0, len(list))
	for _, s := range list {
		value := s.Value
		if s.Secret {
			value = "********"
		}
		out = append(out, gin.H{"key": s.Key, "value": value, "secret": s.Secret, "updated_at": s.UpdatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// UpdateSettings handles PUT /admin/settings. Gateway changes apply on the next restart.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		Settings map[string]string `json:"settings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for k := range req.Settings {
		if _, ok := editableSettings[k]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown setting: " + k})
			return
		}
	}
	if mode, ok := req.Settings[domain.SettingMonnifyMode]; ok {
		mode = strings.ToLower(strings.TrimSpace(mode))
		if mode != monnify.ModeTest && mode != monnify.ModeLive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be test or live"})
			return
		}
		req.Settings[domain.SettingMonnifyMode] = mode
	}
	for k, v := range req.Settings {
		if err := h.settings.Set(c.Request.Context(), k, strings.TrimSpace(v), editableSettings[k]); err != nil {
			h.log.Error("[Admin] update setting failed", zap.String("key", k), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update setting: " + k})
			return
		}
	}
	h.log.Info("[Admin] settings updated", zap.Int("count", len(req.Settings)))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "restart_required": true})
}
