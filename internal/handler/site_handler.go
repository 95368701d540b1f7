package handler

import (
	"encoding/json"
	"net/http"
)

// SiteConfig は管理サイトの表示設定。
type SiteConfig struct {
	SiteHeader     string
	SiteTitle      string
	SiteIndexTitle string
}

// SiteHandler は管理サイトのブランディング情報を返すハンドラー。
// フロントエンドがヘッダーとタイトルの表示に使用する。
type SiteHandler struct {
	config SiteConfig
}

// NewSiteHandler はSiteHandlerを生成する。
func NewSiteHandler(config SiteConfig) *SiteHandler {
	return &SiteHandler{config: config}
}

// GetSite は管理サイトの表示設定を返す。
// GET /admin/site
func (h *SiteHandler) GetSite(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"site_header":      h.config.SiteHeader,
		"site_title":       h.config.SiteTitle,
		"site_index_title": h.config.SiteIndexTitle,
	})
}
