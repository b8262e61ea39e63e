package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/artfundry/bounty-server/internal/db/models"
	"github.com/artfundry/bounty-server/internal/services/attachment"
	"github.com/artfundry/bounty-server/internal/services/bounty"
	"github.com/gin-gonic/gin"
)

type CreateBountyRequest struct {
	Name                    string                  `json:"name" binding:"required"`
	Description             string                  `json:"description"`
	Details                 json.RawMessage         `json:"details"`
	Type                    models.BountyType       `json:"type"`
	Mode                    models.BountyMode       `json:"mode"`
	EntryMode               models.BountyEntryMode  `json:"entry_mode"`
	EntryLimit              int                     `json:"entry_limit"`
	MinBenefactorUnitAmount int64                   `json:"min_benefactor_unit_amount"`
	Nsfw                    bool                    `json:"nsfw"`
	StartsAt                time.Time               `json:"starts_at"`
	ExpiresAt               time.Time               `json:"expires_at" binding:"required"`
	Tags                    []bounty.TagRef         `json:"tags"`
	Files                   []attachment.FileInput  `json:"files"`
	Images                  []attachment.ImageInput `json:"images"`
	UnitAmount              int64                   `json:"unit_amount" binding:"required"`
	Currency                models.Currency         `json:"currency"`
}

type UpdateBountyRequest struct {
	Name                    *string                   `json:"name"`
	Description             *string                   `json:"description"`
	Details                 json.RawMessage           `json:"details"`
	Type                    *models.BountyType        `json:"type"`
	Mode                    *models.BountyMode        `json:"mode"`
	EntryLimit              *int                      `json:"entry_limit"`
	MinBenefactorUnitAmount *int64                    `json:"min_benefactor_unit_amount"`
	Nsfw                    *bool                     `json:"nsfw"`
	StartsAt                *time.Time                `json:"starts_at"`
	ExpiresAt               *time.Time                `json:"expires_at"`
	Complete                *bool                     `json:"complete"`
	Tags                    *[]bounty.TagRef          `json:"tags"`
	Files                   *[]attachment.FileInput   `json:"files"`
}

type ContributeRequest struct {
	UnitAmount int64 `json:"unit_amount" binding:"required"`
}

type CreateEntryRequest struct {
	Description string `json:"description"`
}

func CreateBounty(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateBountyRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	app := currentApp(c)
	created, err := app.Bounties.Create(c.Request.Context(), userID, bounty.CreateBountyInput{
		Name:                    req.Name,
		Description:             req.Description,
		Details:                 req.Details,
		Type:                    req.Type,
		Mode:                    req.Mode,
		EntryMode:               req.EntryMode,
		EntryLimit:              req.EntryLimit,
		MinBenefactorUnitAmount: req.MinBenefactorUnitAmount,
		Nsfw:                    req.Nsfw,
		StartsAt:                req.StartsAt,
		ExpiresAt:               req.ExpiresAt,
		Tags:                    req.Tags,
		Files:                   req.Files,
		Images:                  req.Images,
		UnitAmount:              req.UnitAmount,
		Currency:                req.Currency,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "data": created})
}

func GetBounty(c *gin.Context) {
	id, ok := bountyID(c)
	if !ok {
		return
	}

	found, err := currentApp(c).Bounties.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": found})
}

func ListBounties(c *gin.Context) {
	filter, ok := parseListFilter(c)
	if !ok {
		return
	}

	bounties, next, err := currentApp(c).Bounties.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	ids := make([]int64, 0, len(bounties))
	for _, b := range bounties {
		ids = append(ids, b.ID)
	}
	images, err := currentApp(c).Bounties.GetImagesForBounties(c.Request.Context(), ids)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"data":        bounties,
		"images":      images,
		"next_cursor": next,
	})
}

func UpdateBounty(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}
	id, ok := bountyID(c)
	if !ok {
		return
	}

	var req UpdateBountyRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	updated, err := currentApp(c).Bounties.Update(c.Request.Context(), id, bounty.UpdateBountyInput{
		Name:                    req.Name,
		Description:             req.Description,
		Details:                 req.Details,
		Type:                    req.Type,
		Mode:                    req.Mode,
		EntryLimit:              req.EntryLimit,
		MinBenefactorUnitAmount: req.MinBenefactorUnitAmount,
		Nsfw:                    req.Nsfw,
		StartsAt:                req.StartsAt,
		ExpiresAt:               req.ExpiresAt,
		Complete:                req.Complete,
		Tags:                    req.Tags,
		Files:                   req.Files,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "bounty not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": updated})
}

func DeleteBounty(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}
	id, ok := bountyID(c)
	if !ok {
		return
	}

	deleted, err := currentApp(c).Bounties.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": deleted})
}

func ContributeToBounty(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := bountyID(c)
	if !ok {
		return
	}

	var req ContributeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	benefactor, err := currentApp(c).Bounties.AddBenefactorUnitAmount(c.Request.Context(), id, userID, req.UnitAmount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": benefactor})
}

func CreateBountyEntry(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := bountyID(c)
	if !ok {
		return
	}

	var req CreateEntryRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "failed to parse request body"})
		return
	}

	entry, err := currentApp(c).Bounties.CreateEntry(c.Request.Context(), id, userID, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "ok", "data": entry})
}

func SetBountyEngagement(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := bountyID(c)
	if !ok {
		return
	}
	kind, ok := engagementType(c)
	if !ok {
		return
	}

	if err := currentApp(c).Bounties.SetEngagement(c.Request.Context(), id, userID, kind); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func RemoveBountyEngagement(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	id, ok := bountyID(c)
	if !ok {
		return
	}
	kind, ok := engagementType(c)
	if !ok {
		return
	}

	if err := currentApp(c).Bounties.RemoveEngagement(c.Request.Context(), id, userID, kind); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func GetBountyFiles(c *gin.Context) {
	id, ok := bountyID(c)
	if !ok {
		return
	}

	files, err := currentApp(c).Bounties.GetFiles(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": files})
}

func GetBountyImages(c *gin.Context) {
	id, ok := bountyID(c)
	if !ok {
		return
	}

	images, err := currentApp(c).Bounties.GetImages(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": images})
}

func GetBalance(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	balance, err := currentApp(c).Ledger.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": gin.H{"balance": balance}})
}

func bountyID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid bounty id"})
		return 0, false
	}

	return id, true
}

func engagementType(c *gin.Context) (models.EngagementType, bool) {
	switch models.EngagementType(c.Param("type")) {
	case models.EngagementTypeFavorite:
		return models.EngagementTypeFavorite, true
	case models.EngagementTypeTrack:
		return models.EngagementTypeTrack, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "engagement type must be Favorite or Track"})
		return "", false
	}
}

func parseListFilter(c *gin.Context) (bounty.BountyFilter, bool) {
	filter := bounty.BountyFilter{
		Query:  c.Query("query"),
		Period: models.Timeframe(c.Query("period")),
		Sort:   bounty.BountySort(c.Query("sort")),
	}

	if types := c.Query("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			filter.Types = append(filter.Types, models.BountyType(strings.TrimSpace(t)))
		}
	}
	if baseModels := c.Query("base_models"); baseModels != "" {
		for _, m := range strings.Split(baseModels, ",") {
			filter.BaseModels = append(filter.BaseModels, strings.TrimSpace(m))
		}
	}
	if mode := c.Query("mode"); mode != "" {
		m := models.BountyMode(mode)
		filter.Mode = &m
	}
	if status := c.Query("status"); status != "" {
		st := bounty.BountyStatus(status)
		filter.Status = &st
	}

	if cursor := c.Query("cursor"); cursor != "" {
		parsed, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid cursor"})
			return filter, false
		}
		filter.Cursor = &parsed
	}
	if limit := c.Query("limit"); limit != "" {
		parsed, err := strconv.Atoi(limit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid limit"})
			return filter, false
		}
		filter.Limit = parsed
	}

	filter.Favorited = c.Query("favorited") == "true"
	filter.Tracked = c.Query("tracked") == "true"
	filter.Supporting = c.Query("supporting") == "true"
	filter.Awarded = c.Query("awarded") == "true"
	if filter.Favorited || filter.Tracked || filter.Supporting || filter.Awarded {
		userID, ok := requireUserID(c)
		if !ok {
			return filter, false
		}
		filter.UserID = userID
	}

	return filter, true
}
