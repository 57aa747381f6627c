package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Astemirdum/lending-service/lending/internal/model"
	"github.com/Astemirdum/lending-service/pkg/redisx"
)

const (
	HeaderIdempotencyKey      = "Idempotency-Key"
	HeaderIdempotencyReplayed = "Idempotent-Replayed"
)

// checkoutFingerprint binds an Idempotency-Key to the request it was first sent with.
func checkoutFingerprint(req model.CheckoutRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// checkoutOnce runs a checkout at most once per Idempotency-Key. A repeated key
// gets the stored response back; a key whose first request is still running gets 409.
// Reusing a key for a different request gets 422.
func (h *Handler) checkoutOnce(c echo.Context, key string, req model.CheckoutRequest) error {
	ctx := c.Request().Context()
	fp, err := checkoutFingerprint(req)
	if err != nil {
		return h.httpError(err)
	}
	stored, reserved, err := h.idem.Reserve(ctx, key, fp)
	if errors.Is(err, redisx.ErrFingerprintMismatch) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Idempotency-Key was used with a different request")
	}
	if err != nil {
		h.log.Error("idempotency reserve", zap.String("key", key), zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "idempotency store unavailable")
	}
	if stored != nil {
		c.Response().Header().Set(HeaderIdempotencyReplayed, "true")
		return c.JSONBlob(http.StatusCreated, stored)
	}
	if !reserved {
		return echo.NewHTTPError(http.StatusConflict, "request with this Idempotency-Key is in progress")
	}

	rec, err := h.borrowSvc.Checkout(ctx, req)
	if err != nil {
		if relErr := h.idem.Release(context.WithoutCancel(ctx), key); relErr != nil {
			h.log.Warn("idempotency release", zap.String("key", key), zap.Error(relErr))
		}
		return h.httpError(err)
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return h.httpError(err)
	}
	if err := h.idem.Complete(context.WithoutCancel(ctx), key, fp, body); err != nil {
		h.log.Warn("idempotency complete", zap.String("key", key), zap.Error(err))
	}
	return c.JSONBlob(http.StatusCreated, body)
}
