package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmlago/habitloop/internal/cache"
	"github.com/jmlago/habitloop/internal/models"
)

const boardCacheKey = "habitloop:achievements:board"

// BoardEntry is one achievement on the board: the catalog definition merged
// with unlock and progress state. Hidden achievements stay masked until
// earned.
type BoardEntry struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Category    string     `json:"category"`
	Rarity      string     `json:"rarity"`
	Hidden      bool       `json:"hidden"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
	Viewed      bool       `json:"viewed"`
	Progress    *Progress  `json:"progress,omitempty"`
}

// Progress is the partial-progress view for a locked achievement.
type Progress struct {
	Current    int `json:"current"`
	Target     int `json:"target"`
	Percentage int `json:"percentage"`
}

// GetAchievementBoard returns the full board in catalog order. The assembled
// payload is served from Redis when available; cache failures fall through to
// storage.
// GET /api/v1/achievements.
func (h *Handler) GetAchievementBoard(c *gin.Context) {
	ctx := c.Request.Context()

	if h.boardCache != nil {
		if cached, err := h.boardCache.Get(ctx, boardCacheKey); err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			return
		} else if !errors.Is(err, cache.ErrMiss) {
			h.log.Warn().Err(err).Msg("Board cache read failed")
		}
	}

	board, err := h.buildBoard(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build achievement board")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve achievements")
		return
	}

	unlockedCount := 0
	for i := range board {
		if board[i].Unlocked {
			unlockedCount++
		}
	}

	payload, err := json.Marshal(gin.H{
		"achievements": board,
		"total":        len(board),
		"unlocked":     unlockedCount,
	})
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "Failed to encode achievements")
		return
	}

	if h.boardCache != nil {
		if err := h.boardCache.Set(ctx, boardCacheKey, string(payload), h.boardCacheTTL); err != nil {
			h.log.Warn().Err(err).Msg("Board cache write failed")
		}
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (h *Handler) buildBoard(ctx context.Context) ([]BoardEntry, error) {
	unlocked, err := h.achievementService.GetUnlocked(ctx)
	if err != nil {
		return nil, err
	}
	unlockedByID := make(map[string]models.UnlockedAchievement, len(unlocked))
	for _, u := range unlocked {
		unlockedByID[u.AchievementID] = u
	}

	progressRows, err := h.achievementService.GetProgressRows(ctx)
	if err != nil {
		return nil, err
	}
	progressByID := make(map[string]models.AchievementProgress, len(progressRows))
	for _, p := range progressRows {
		progressByID[p.AchievementID] = p
	}

	defs := h.achievementService.Catalog()
	board := make([]BoardEntry, 0, len(defs))
	for _, def := range defs {
		entry := BoardEntry{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Category:    def.Category,
			Rarity:      def.Rarity,
			Hidden:      def.Hidden,
		}

		if u, ok := unlockedByID[def.ID]; ok {
			unlockedAt := u.UnlockedAt
			entry.Unlocked = true
			entry.UnlockedAt = &unlockedAt
			entry.Viewed = u.Viewed
		} else {
			// Locked hidden achievements reveal nothing but their existence.
			if def.Hidden {
				entry.Name = "???"
				entry.Description = "Hidden achievement"
				entry.Icon = ""
			}
			if p, ok := progressByID[def.ID]; ok {
				entry.Progress = &Progress{
					Current:    p.CurrentValue,
					Target:     p.TargetValue,
					Percentage: p.Percentage,
				}
			}
		}

		board = append(board, entry)
	}
	return board, nil
}

type viewedRequest struct {
	AchievementIDs []string `json:"achievement_ids"`
	All            bool     `json:"all"`
}

// MarkAchievementsViewed marks unlocked achievements as seen so a UI can stop
// highlighting them. Re-marking is a no-op.
// POST /api/v1/achievements/viewed.
func (h *Handler) MarkAchievementsViewed(c *gin.Context) {
	var req viewedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !req.All && len(req.AchievementIDs) == 0 {
		h.errorResponse(c, http.StatusBadRequest, "achievement_ids is required unless all is set")
		return
	}

	ctx := c.Request.Context()
	if err := h.achievementService.MarkViewed(ctx, req.AchievementIDs, req.All); err != nil {
		h.log.Error().Err(err).Msg("Failed to mark achievements viewed")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to mark achievements viewed")
		return
	}
	h.dropBoardCache(ctx)

	c.JSON(http.StatusOK, gin.H{"viewed": true})
}

// dropBoardCache invalidates the cached board payload after any write that
// could change it.
func (h *Handler) dropBoardCache(ctx context.Context) {
	if h.boardCache == nil {
		return
	}
	if err := h.boardCache.Del(ctx, boardCacheKey); err != nil {
		h.log.Warn().Err(err).Msg("Board cache invalidation failed")
	}
}
