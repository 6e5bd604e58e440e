package api

import (
	"net/http"
	"strconv"

	"a1hub/internal/a1hub"

	"github.com/gin-gonic/gin"
)

type PaginatedRewards struct {
	Count   int64          `json:"count"`
	Page    int            `json:"page"`
	Results []a1hub.Reward `json:"results"`
}

// GetTeam reports the downline of a member, counted per level. With
// ?details=true the member rows of each level are included as well.
func GetTeam(c *gin.Context) {
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

	var counts []struct {
		Level uint
		Total int64
	}
	app.Db.Model(&a1hub.TreeEdge{}).
		Select("level, count(*) as total").
		Where("ancestor_id = ?", id).
		Group("level").
		Scan(&counts)

	team := a1hub.TeamData{ByLevel: map[uint]int64{}}
	for _, row := range counts {
		team.ByLevel[row.Level] = row.Total
		team.TotalMembers += row.Total
	}

	if c.DefaultQuery("details", "") == "true" {
		team.Members = map[uint][]a1hub.Member{}
		for level := range team.ByLevel {
			var members []a1hub.Member
			app.Db.Model(&a1hub.Member{}).
				Joins("JOIN tree_edges ON tree_edges.member_id = members.id").
				Where("tree_edges.ancestor_id = ? AND tree_edges.level = ?", id, level).
				Order("members.created_at ASC").
				Find(&members)
			team.Members[level] = members
		}
	}

	c.JSON(http.StatusOK, team)
}

// GetRewards lists the milestone rewards claimed by a member, newest first.
func GetRewards(c *gin.Context) {
	app := c.MustGet("app").(*a1hub.App)
	id := c.Param("id")
	page, size, ok := pageParams(c)
	if !ok {
		return
	}

	var count int64
	app.Db.Model(&a1hub.Reward{}).Where("member_id = ?", id).Count(&count)

	var rewards []a1hub.Reward
	app.Db.Where("member_id = ?", id).
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&rewards)

	c.JSON(http.StatusOK, PaginatedRewards{
		Count:   count,
		Page:    page,
		Results: rewards,
	})
}

func pageParams(c *gin.Context) (page int, size int, ok bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return 0, 0, false
	}
	size, err = strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil || size < 1 || size > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 1 and 100"})
		return 0, 0, false
	}
	return page, size, true
}
