package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"

	"spinledger/config"
	"spinledger/ledger"
	"spinledger/models"
	"spinledger/utils"
)

// AdminController backs the external code-validator tool and prize
// management. Access is a single configured admin identity with a
// bcrypt-hashed key.
type AdminController struct {
	store     *ledger.Store
	prizes    *ledger.PrizeSource
	sanitizer *bluemonday.Policy
}

func NewAdminController(store *ledger.Store, prizes *ledger.PrizeSource) *AdminController {
	return &AdminController{
		store:     store,
		prizes:    prizes,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Key      string `json:"key" binding:"required"`
}

// Login checks the admin key against its configured hash and issues a
// short-lived token.
func (a *AdminController) Login(ctx *gin.Context) {
	var req adminLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "username and key are required")
		return
	}

	cfg := config.Get()
	if req.Username != cfg.AdminUsername || !utils.CheckAdminKey(cfg.AdminKeyHash, req.Key) {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "invalid credentials")
		return
	}

	token, err := utils.GenerateAdminToken(req.Username, time.Duration(cfg.AdminTokenTTLMin)*time.Minute)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{"token": token})
}

// LookupCode returns the full audit view of a reward code. Read-only.
func (a *AdminController) LookupCode(ctx *gin.Context) {
	code := ctx.Param("code")
	rc, err := a.store.LookupCode(code)
	if err != nil {
		if errors.Is(err, ledger.ErrCodeNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "code not found")
			return
		}
		utils.Error(ctx, http.StatusServiceUnavailable, 50320, "lookup unavailable, try later")
		return
	}

	utils.Success(ctx, gin.H{
		"valid":       !rc.Redeemed && time.Now().Before(rc.ExpiresAt),
		"redeemed":    rc.Redeemed,
		"redeemed_at": rc.RedeemedAt,
		"prize":       rc.PrizeName,
		"prize_type":  rc.PrizeType,
		"phone":       rc.PhoneNumber,
		"created_at":  rc.CreatedAt,
		"expires_at":  rc.ExpiresAt,
	})
}

type prizeInput struct {
	Type       string `json:"type" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Value      string `json:"value"`
	Weight     int    `json:"weight"`
	CodePrefix string `json:"code_prefix"`
	Color      string `json:"color"`
}

type replacePrizesRequest struct {
	Prizes []prizeInput `json:"prizes" binding:"required"`
}

// ReplacePrizes swaps the whole wheel. Segment order follows the request
// order; display names are stripped of any markup before storage.
func (a *AdminController) ReplacePrizes(ctx *gin.Context) {
	var req replacePrizesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.Prizes) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40021, "prizes list is required")
		return
	}

	rows := make([]models.Prize, 0, len(req.Prizes))
	for i, p := range req.Prizes {
		if p.Weight < 0 {
			utils.Error(ctx, http.StatusBadRequest, 40022, "prize weights must be non-negative")
			return
		}
		if p.Type != models.TryAgainType && p.CodePrefix == "" {
			utils.Error(ctx, http.StatusBadRequest, 40023, "code_prefix is required for redeemable prizes")
			return
		}
		rows = append(rows, models.Prize{
			Type:       p.Type,
			Name:       a.sanitizer.Sanitize(p.Name),
			Value:      a.sanitizer.Sanitize(p.Value),
			Weight:     p.Weight,
			CodePrefix: p.CodePrefix,
			Color:      p.Color,
			Position:   i,
		})
	}

	if err := a.prizes.Replace(rows); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, err.Error())
		return
	}

	utils.Success(ctx, gin.H{"count": len(rows)})
}
