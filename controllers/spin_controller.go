package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spinledger/ledger"
	"spinledger/utils"
)

// SpinController exposes the eligibility check and the spin itself.
type SpinController struct {
	store  *ledger.Store
	issuer *ledger.Issuer
	prizes *ledger.PrizeSource
}

// NewSpinController creates a new controller instance.
func NewSpinController(store *ledger.Store, issuer *ledger.Issuer, prizes *ledger.PrizeSource) *SpinController {
	return &SpinController{store: store, issuer: issuer, prizes: prizes}
}

type identityRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	DeviceID    string `json:"device_id" binding:"required"`
}

func bindIdentity(ctx *gin.Context) (ledger.Identity, bool) {
	var req identityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "phone_number and device_id are required")
		return ledger.Identity{}, false
	}
	id, err := ledger.ResolveIdentity(req.PhoneNumber, req.DeviceID)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid phone number or device id")
		return ledger.Identity{}, false
	}
	return id, true
}

// CheckEligibility answers whether the identity may spin right now. The
// result is a snapshot for UI state; Spin re-checks atomically.
func (s *SpinController) CheckEligibility(ctx *gin.Context) {
	id, ok := bindIdentity(ctx)
	if !ok {
		return
	}

	spun, err := s.store.HasSpunToday(id)
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "eligibility unavailable, try later")
		return
	}
	bonus, err := s.store.HasTryAgainChance(id)
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50301, "eligibility unavailable, try later")
		return
	}

	utils.Success(ctx, gin.H{
		"can_spin":       !spun || bonus,
		"has_bonus_spin": bonus,
	})
}

// Spin draws a prize and records the outcome. Ineligible identities and
// race losers get the same user-facing answer: come back tomorrow.
func (s *SpinController) Spin(ctx *gin.Context) {
	id, ok := bindIdentity(ctx)
	if !ok {
		return
	}

	ip := ctx.ClientIP()
	if !utils.SpinDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "daily attempt limit reached")
		return
	}
	if !utils.SpinCooldownTry(id.Key()) {
		utils.Error(ctx, http.StatusTooManyRequests, 42903, "spin attempt too soon, slow down")
		return
	}
	utils.SpinDailyIncrement(ip)

	reward, err := s.issuer.Spin(id)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrIneligible), errors.Is(err, ledger.ErrRaceLost):
			utils.Error(ctx, http.StatusForbidden, 40310, "already spun today, come back tomorrow")
		case errors.Is(err, ledger.ErrStoreUnavailable):
			utils.Error(ctx, http.StatusServiceUnavailable, 50302, "spin unavailable, try later")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50010, "spin failed")
		}
		return
	}

	utils.Success(ctx, reward)
}

// ListPrizes returns the ordered wheel with percentage chances, matching
// the storefront's segment layout.
func (s *SpinController) ListPrizes(ctx *gin.Context) {
	table, err := s.prizes.Load()
	if err != nil {
		utils.Error(ctx, http.StatusServiceUnavailable, 50303, "prize table unavailable")
		return
	}

	type segment struct {
		Position int     `json:"position"`
		Type     string  `json:"type"`
		Name     string  `json:"name"`
		Value    string  `json:"value"`
		Color    string  `json:"color"`
		Chance   float64 `json:"chance"`
	}

	out := make([]segment, 0, len(table.Prizes))
	for _, p := range table.Prizes {
		chance := float64(p.Weight) / float64(table.TotalWeight) * 100
		out = append(out, segment{
			Position: p.Position,
			Type:     p.Type,
			Name:     p.Name,
			Value:    p.Value,
			Color:    p.Color,
			Chance:   chance,
		})
	}
	utils.Success(ctx, out)
}
