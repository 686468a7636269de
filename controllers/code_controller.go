package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spinledger/ledger"
	"spinledger/utils"
)

// CodeController handles redemption, called by the external claim channel.
type CodeController struct {
	store *ledger.Store
}

func NewCodeController(store *ledger.Store) *CodeController {
	return &CodeController{store: store}
}

type redeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// Redeem flips a reward code to redeemed. Each distinct failure is its own
// user-facing answer; a double submit gets "already redeemed", not success.
func (c *CodeController) Redeem(ctx *gin.Context) {
	var req redeemRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "code is required")
		return
	}

	rc, err := c.store.RedeemCode(req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrCodeNotFound):
			utils.Error(ctx, http.StatusNotFound, 40410, "code not found")
		case errors.Is(err, ledger.ErrCodeAlreadyRedeemed):
			utils.Error(ctx, http.StatusConflict, 40910, "code already redeemed")
		case errors.Is(err, ledger.ErrCodeExpired):
			utils.Error(ctx, http.StatusGone, 41010, "code expired")
		default:
			utils.Error(ctx, http.StatusServiceUnavailable, 50310, "redemption unavailable, try later")
		}
		return
	}

	utils.Success(ctx, gin.H{
		"code":        rc.Code,
		"prize_name":  rc.PrizeName,
		"prize_value": rc.PrizeValue,
		"redeemed_at": rc.RedeemedAt,
	})
}
