package api

import (
	"net/http"

	"a1hub/internal/a1hub"

	"github.com/gin-gonic/gin"
)

type PaginatedCommissions struct {
	Count   int64              `json:"count"`
	Page    int                `json:"page"`
	Results []a1hub.Commission `json:"results"`
}

// GetWallet returns the wallet balance and lifetime totals of a member.
func GetWallet(c *gin.Context) {
	app := c.MustGet("app").(*a1hub.App)
	id := c.Param("id")

	var member a1hub.Member
	res := app.Db.Where("id = ?", id).First(&member)
	switch lookupStatus(res) {
	case http.StatusInternalServerError:
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	case http.StatusNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown member"})
		return
	}

	c.JSON(http.StatusOK, a1hub.MemberData{
		Id:             member.Id,
		RefCode:        member.Code(),
		IsActive:       member.IsActive,
		WalletBalance:  member.WalletBalance,
		TotalEarned:    member.TotalEarned,
		TotalWithdrawn: member.TotalWithdrawn,
	})
}

// GetCommissions lists the level commissions earned by a member, newest
// first. Rows still awaiting a wallet credit show status "retry_pending".
func GetCommissions(c *gin.Context) {
	app := c.MustGet("app").(*a1hub.App)
	id := c.Param("id")
	page, size, ok := pageParams(c)
	if !ok {
		return
	}

	var count int64
	app.Db.Model(&a1hub.Commission{}).Where("member_id = ?", id).Count(&count)

	var commissions []a1hub.Commission
	app.Db.Where("member_id = ?", id).
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&commissions)

	c.JSON(http.StatusOK, PaginatedCommissions{
		Count:   count,
		Page:    page,
		Results: commissions,
	})
}
