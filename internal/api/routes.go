package api

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rawblock/ctoken-engine/internal/assembler"
	"github.com/rawblock/ctoken-engine/internal/db"
	"github.com/rawblock/ctoken-engine/internal/engineerr"
	"github.com/rawblock/ctoken-engine/internal/planner"
	"github.com/rawblock/ctoken-engine/internal/txspec"
	"github.com/rawblock/ctoken-engine/pkg/cardano"
)

// APIHandler bundles the collaborators every "plan transaction" endpoint
// needs: the core planner and optional persistence/progress-stream stores.
type APIHandler struct {
	planner *planner.Planner
	store   *db.PostgresStore // nil when DATABASE_URL is unset; persistence is best-effort
	wsHub   *Hub
}

// SetupRouter wires one thin endpoint per operation named in spec.md §4.6,
// mirroring the teacher's SetupRouter shape: gin.Default(), a bearer auth
// middleware, a per-IP rate limiter, and a websocket progress stream.
func SetupRouter(p *planner.Planner, store *db.PostgresStore, wsHub *Hub) *gin.Engine {
	r := gin.Default()
	h := &APIHandler{planner: p, store: store, wsHub: wsHub}

	limiter := NewRateLimiter(30, 10)
	r.Use(limiter.Middleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/stream", wsHub.Subscribe)

	protected := r.Group("/v1")
	protected.Use(AuthMiddleware())
	{
		protected.POST("/register-token", h.registerToken)
		protected.POST("/mint-token", h.mintToken)
		protected.POST("/transfer-token", h.transferToken)
		protected.POST("/blacklist/init", h.initBlacklist)
		protected.POST("/blacklist/freeze", h.freezeAddress)
		protected.POST("/blacklist/seize", h.seize)
	}
	return r
}

// planResponse is the common shape every "plan transaction" endpoint
// returns: an unsigned transaction body plus its hash, ready for an
// external signer (spec §6 external interfaces — Signer is never invoked
// by this core).
type planResponse struct {
	IdempotencyKey string `json:"idempotencyKey"`
	BodyCBORHex    string `json:"bodyCborHex"`
	BodyHashHex    string `json:"bodyHashHex"`
	FeeLovelace    int64  `json:"feeLovelace"`
}

func idempotencyKeyFrom(c *gin.Context) string {
	if k := c.GetHeader("Idempotency-Key"); k != "" {
		return k
	}
	return uuid.NewString()
}

// assembleAndRespond runs the assembler over a planner's txspec.Spec,
// optionally records it, and writes the HTTP response.
func (h *APIHandler) assembleAndRespond(c *gin.Context, operation, policyIDHex string, spec txspec.Spec) {
	key := idempotencyKeyFrom(c)

	if h.store != nil {
		if bodyHashHex, fee, found, err := h.store.LookupPlannedTransaction(c.Request.Context(), key); err == nil && found {
			c.JSON(http.StatusOK, planResponse{IdempotencyKey: key, BodyHashHex: bodyHashHex, FeeLovelace: fee})
			return
		}
	}

	unsigned, err := assembler.Assemble(spec)
	if err != nil {
		writeEngineError(c, err)
		return
	}

	bodyHashHex := hex.EncodeToString(unsigned.BodyHash[:])
	if h.store != nil {
		_ = h.store.RecordPlannedTransaction(c.Request.Context(), key, operation, policyIDHex, bodyHashHex, unsigned.Fee)
	}
	if h.wsHub != nil {
		h.wsHub.Broadcast([]byte(`{"event":"plan_built","operation":"` + operation + `","idempotencyKey":"` + key + `"}`))
	}

	c.JSON(http.StatusOK, planResponse{
		IdempotencyKey: key,
		BodyCBORHex:    hex.EncodeToString(unsigned.BodyCBOR),
		BodyHashHex:    bodyHashHex,
		FeeLovelace:    unsigned.Fee,
	})
}

// writeEngineError maps an engineerr.Error to an HTTP status: recoverable
// kinds (insufficient funds, blacklisted sender, not-yet-registered) are
// client errors; everything else is a server-side config/logic bug.
func writeEngineError(c *gin.Context, err error) {
	var e *engineerr.Error
	if errors.As(err, &e) {
		status := http.StatusUnprocessableEntity
		if !e.Recoverable() {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": e.Error(), "kind": string(e.Kind)})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func parsePolicyID(hexStr string) (cardano.PolicyId, error) {
	var out cardano.PolicyId
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return out, err
	}
	if len(b) != 28 {
		return out, errInvalidPolicyLength
	}
	copy(out[:], b)
	return out, nil
}

var errInvalidPolicyLength = errors.New("policy id must be 28 bytes")

// --- request bodies ---

type registerTokenRequest struct {
	RegistrarAddress      string  `json:"registrarAddress" binding:"required"`
	SubstandardID         string  `json:"substandardId" binding:"required"`
	IssueContractTitle    string  `json:"issueContractTitle" binding:"required"`
	TransferContractTitle string  `json:"transferContractTitle" binding:"required"`
	ThirdPartyTitle       string  `json:"thirdPartyTitle"`
	AssetNameHex          string  `json:"assetNameHex" binding:"required"`
	Quantity              int64   `json:"quantity" binding:"required"`
	RecipientAddress      *string `json:"recipientAddress"`
	AdminPkhHex           string  `json:"adminPkhHex"`
}

func (h *APIHandler) registerToken(c *gin.Context) {
	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	registrar, err := cardano.ParseAddress(req.RegistrarAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	assetName, err := hex.DecodeString(req.AssetNameHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assetNameHex: " + err.Error()})
		return
	}

	intent := planner.RegisterTokenIntent{
		RegistrarAddress:      registrar,
		SubstandardID:         req.SubstandardID,
		IssueContractTitle:    req.IssueContractTitle,
		TransferContractTitle: req.TransferContractTitle,
		ThirdPartyTitle:       req.ThirdPartyTitle,
		AssetNameBytes:        assetName,
		Quantity:              req.Quantity,
	}
	if req.RecipientAddress != nil {
		recipient, err := cardano.ParseAddress(*req.RecipientAddress)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		intent.RecipientAddress = &recipient
	}
	if req.AdminPkhHex != "" {
		adminPkh, err := hex.DecodeString(req.AdminPkhHex)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "adminPkhHex: " + err.Error()})
			return
		}
		intent.AdminPkh = adminPkh
	}

	spec, err := h.planner.RegisterToken(reqCtx(c), intent)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	h.assembleAndRespond(c, "register-token", "", spec)
}

type mintTokenRequest struct {
	PolicyIDHex        string `json:"policyIdHex" binding:"required"`
	AssetNameHex       string `json:"assetNameHex" binding:"required"`
	Quantity           int64  `json:"quantity" binding:"required"`
	RecipientAddress   string `json:"recipientAddress" binding:"required"`
	RegistrarAddress   string `json:"registrarAddress" binding:"required"`
	SubstandardID      string `json:"substandardId" binding:"required"`
	IssueContractTitle string `json:"issueContractTitle" binding:"required"`
}

func (h *APIHandler) mintToken(c *gin.Context) {
	var req mintTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	policyID, err := parsePolicyID(req.PolicyIDHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "policyIdHex: " + err.Error()})
		return
	}
	assetName, err := hex.DecodeString(req.AssetNameHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assetNameHex: " + err.Error()})
		return
	}
	recipient, err := cardano.ParseAddress(req.RecipientAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	registrar, err := cardano.ParseAddress(req.RegistrarAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spec, err := h.planner.MintToken(reqCtx(c), planner.MintTokenIntent{
		PolicyID:         policyID,
		AssetNameBytes:   assetName,
		Quantity:         req.Quantity,
		RecipientAddress: recipient,
		RegistrarAddress: registrar,
	}, req.SubstandardID, req.IssueContractTitle)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	h.assembleAndRespond(c, "mint-token", req.PolicyIDHex, spec)
}

type transferTokenRequest struct {
	SubstandardID            string `json:"substandardId" binding:"required"`
	PolicyIDHex              string `json:"policyIdHex" binding:"required"`
	AssetNameHex             string `json:"assetNameHex" binding:"required"`
	Quantity                 int64  `json:"quantity" binding:"required"`
	SenderStakeKeyHashHex    string `json:"senderStakeKeyHashHex" binding:"required"`
	RecipientStakeKeyHashHex string `json:"recipientStakeKeyHashHex" binding:"required"`
	SenderBaseAddress        string `json:"senderBaseAddress" binding:"required"`
	BlacklistNodePolicyIDHex string `json:"blacklistNodePolicyIdHex"`
}

func (h *APIHandler) transferToken(c *gin.Context) {
	var req transferTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	policyID, err := parsePolicyID(req.PolicyIDHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "policyIdHex: " + err.Error()})
		return
	}
	assetName, err := hex.DecodeString(req.AssetNameHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assetNameHex: " + err.Error()})
		return
	}
	senderStakeKeyHash, err := hex.DecodeString(req.SenderStakeKeyHashHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "senderStakeKeyHashHex: " + err.Error()})
		return
	}
	recipientStakeKeyHash, err := hex.DecodeString(req.RecipientStakeKeyHashHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipientStakeKeyHashHex: " + err.Error()})
		return
	}
	senderAddr, err := cardano.ParseAddress(req.SenderBaseAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intent := planner.TransferTokenIntent{
		SubstandardID:         req.SubstandardID,
		PolicyID:              policyID,
		AssetNameBytes:        assetName,
		Quantity:              req.Quantity,
		SenderStakeKeyHash:    senderStakeKeyHash,
		RecipientStakeKeyHash: recipientStakeKeyHash,
		SenderBaseAddress:     senderAddr,
	}
	if req.BlacklistNodePolicyIDHex != "" {
		blPolicy, err := parsePolicyID(req.BlacklistNodePolicyIDHex)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "blacklistNodePolicyIdHex: " + err.Error()})
			return
		}
		intent.BlacklistNodePolicyID = &blPolicy
	}

	spec, err := h.planner.TransferToken(reqCtx(c), intent)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	h.assembleAndRespond(c, "transfer-token", req.PolicyIDHex, spec)
}

type initBlacklistRequest struct {
	BootstrapTxHash string `json:"bootstrapTxHash" binding:"required"`
	BootstrapTxIdx  uint32 `json:"bootstrapTxIndex"`
	AdminPkhHex     string `json:"adminPkhHex" binding:"required"`
	FunderAddress   string `json:"funderAddress" binding:"required"`
}

func (h *APIHandler) initBlacklist(c *gin.Context) {
	var req initBlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	txHash, err := hex.DecodeString(req.BootstrapTxHash)
	if err != nil || len(txHash) != 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bootstrapTxHash must be 32 bytes hex"})
		return
	}
	adminPkh, err := hex.DecodeString(req.AdminPkhHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "adminPkhHex: " + err.Error()})
		return
	}
	funder, err := cardano.ParseAddress(req.FunderAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var outpoint cardano.Outpoint
	copy(outpoint.TxHash[:], txHash)
	outpoint.Index = req.BootstrapTxIdx

	spec, err := h.planner.InitBlacklist(reqCtx(c), planner.InitBlacklistIntent{
		BootstrapTxInput: outpoint,
		AdminPkh:         adminPkh,
		FunderAddress:    funder,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	h.assembleAndRespond(c, "blacklist-init", "", spec)
}

type freezeAddressRequest struct {
	NodePolicyIDHex    string `json:"nodePolicyIdHex" binding:"required"`
	TargetStakeKeyHash string `json:"targetStakeKeyHashHex" binding:"required"`
	AdminAddress       string `json:"adminAddress" binding:"required"`
}

func (h *APIHandler) freezeAddress(c *gin.Context) {
	var req freezeAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	nodePolicyID, err := parsePolicyID(req.NodePolicyIDHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nodePolicyIdHex: " + err.Error()})
		return
	}
	target, err := hex.DecodeString(req.TargetStakeKeyHash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "targetStakeKeyHashHex: " + err.Error()})
		return
	}
	admin, err := cardano.ParseAddress(req.AdminAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spec, err := h.planner.FreezeAddress(reqCtx(c), nodePolicyID, planner.FreezeAddressIntent{
		TargetStakeKeyHash: target,
		AdminAddress:       admin,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	h.assembleAndRespond(c, "blacklist-freeze", req.NodePolicyIDHex, spec)
}

type seizeRequest struct {
	TargetStakeKeyHashHex string `json:"targetStakeKeyHashHex" binding:"required"`
	PolicyIDHex           string `json:"policyIdHex" binding:"required"`
	AssetNameHex          string `json:"assetNameHex" binding:"required"`
	AdminAddress          string `json:"adminAddress" binding:"required"`
}

func (h *APIHandler) seize(c *gin.Context) {
	var req seizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, err := hex.DecodeString(req.TargetStakeKeyHashHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "targetStakeKeyHashHex: " + err.Error()})
		return
	}
	policyID, err := parsePolicyID(req.PolicyIDHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "policyIdHex: " + err.Error()})
		return
	}
	assetName, err := hex.DecodeString(req.AssetNameHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assetNameHex: " + err.Error()})
		return
	}
	admin, err := cardano.ParseAddress(req.AdminAddress)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	spec, err := h.planner.Seize(reqCtx(c), planner.SeizeIntent{
		TargetStakeKeyHash: target,
		PolicyID:           policyID,
		AssetNameBytes:     assetName,
		AdminAddress:       admin,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	h.assembleAndRespond(c, "blacklist-seize", req.PolicyIDHex, spec)
}

func reqCtx(c *gin.Context) context.Context { return c.Request.Context() }
