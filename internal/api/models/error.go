package models

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the flat error envelope returned by every failing
// endpoint. Legacy clients match on the exact error strings, so the
// constants below must not be reworded.
type ErrorBody struct {
	Error    string `json:"error"`
	ResortID int64  `json:"resort_id,omitempty"`
	Slug     string `json:"slug,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Error strings shared by handlers and middleware.
const (
	MsgDatabaseDown      = "数据库未连接"
	MsgNoData            = "暂无数据"
	MsgNoDataHint        = "请先运行数据采集"
	MsgResortNotFound    = "未找到雪场"
	MsgTrailsNotFound    = "未找到雪道数据"
	MsgTrailsNotFoundHint = "该雪场可能还未采集雪道数据"
	MsgInvalidParameters = "Invalid parameters"
	MsgUnauthorized      = "Invalid or missing admin key"
	MsgRateLimited       = "Rate limit exceeded"
	MsgInternalError     = "Internal server error"
)

// Write serializes the envelope with the given status code.
func (e ErrorBody) Write(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(e)
}
