// Package remote is the HTTP client for the fine-tuning workflow service.
//
// It reads job and model status and issues the fine-tune, call-model and
// clear-user-data mutations. Non-2xx responses and malformed bodies are
// reported as services.ErrService.
package remote
