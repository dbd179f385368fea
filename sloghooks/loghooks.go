// Package sloghooks is a scopecache.Hooks implementation that logs events
// through log/slog, with optional sampling for the noisy ones.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/scopecache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery    uint64
	SetRejectedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr    atomic.Uint64
	setRejectedCtr atomic.Uint64
}

var _ scopecache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SetRejected(storageKey string) {
	if h.l == nil || !sample(h.opts.SetRejectedEvery, &h.setRejectedCtr) {
		return
	}
	h.l.Warn("scopecache.set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) BatchAborted(kind scopecache.OpKind, storageKey string, applied int) {
	if h.l == nil {
		return
	}
	h.l.Info("scopecache.batch_aborted",
		"op", kind.String(),
		"key", h.redact(storageKey),
		"applied", applied)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("scopecache.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ClearDenied(reason string) {
	if h.l == nil {
		return
	}
	h.l.Warn("scopecache.clear_denied",
		"reason", reason)
}

func (h *Hooks) ClearSegmentFailed(segment int, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("scopecache.clear_segment_failed",
		"segment", segment,
		"err", err)
}
