package handlers

import (
	"net/http"

	"github.com/google/uuid"

	paymasterapi "paywallet/pkg/api/paymaster"
	"paywallet/pkg/auth"
	"paywallet/pkg/logging"
	"paywallet/pkg/middleware"
)

// WalletChallenge issues a timestamped message for the wallet to sign. The
// signed message goes back through WalletLogin within the 5-minute window.
func WalletChallenge(c middleware.Context) {
	nonce := uuid.NewString()
	c.JSON(http.StatusOK, paymasterapi.WalletChallengeResponse{
		Message: auth.GenerateWalletAuthMessage(nonce),
		Nonce:   nonce,
	})
}

// WalletLogin verifies an EIP-191 wallet signature and issues a session JWT
// bound to the wallet address.
func WalletLogin(c middleware.Context) {
	var req paymasterapi.WalletLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: "Invalid request body"})
		return
	}

	ok, err := auth.VerifyWalletAuth(auth.WalletMessage{
		Address:   req.Address,
		Message:   req.Message,
		Signature: req.Signature,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, paymasterapi.ErrorResponse{Error: "Signature does not match address"})
		return
	}

	normalized, err := auth.NormalizeEthAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, paymasterapi.ErrorResponse{Error: err.Error()})
		return
	}

	token, err := auth.GenerateJWT(normalized, "employer", jwtSecret)
	if err != nil {
		logger.WithError(err).Error("Failed to generate JWT")
		c.JSON(http.StatusInternalServerError, paymasterapi.ErrorResponse{Error: "Failed to create session"})
		return
	}

	logger.WithFields(logging.Fields{
		"wallet": normalized,
	}).Info("Wallet login")

	c.JSON(http.StatusOK, paymasterapi.WalletLoginResponse{
		Token:         token,
		WalletAddress: normalized,
		ExpiresIn:     15 * 60,
	})
}
