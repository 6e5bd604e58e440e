package api

import (
	"errors"
	"fmt"
	"net/http"

	"a1hub/internal/a1hub"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// PostActivation accepts a gateway-confirmed joining fee payment and queues
// it for processing. The task id is derived from the payment id, so the
// gateway may repost the same payment without producing a second task.
func PostActivation(c *gin.Context) {
	app := c.MustGet("app").(*a1hub.App)

	var ev a1hub.ActivationEvent
	if err := c.BindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if ev.MemberId == "" || ev.PaymentId == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "member_id and payment_id are required"})
		return
	}
	if ev.Fee <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fee must be positive"})
		return
	}

	var member a1hub.Member
	res := app.Db.Where("id = ?", ev.MemberId).First(&member)
	switch lookupStatus(res) {
	case http.StatusInternalServerError:
		c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
		return
	case http.StatusNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown member"})
		return
	}

	task, err := a1hub.NewActivationTask(ev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	info, err := app.Aqc.Enqueue(task, asynq.TaskID("activation:"+ev.PaymentId))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			c.JSON(http.StatusAccepted, gin.H{"queued": false, "detail": "payment already queued"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	fmt.Printf("[[Activation]] Queued payment %s for member %s as task %s\n", ev.PaymentId, ev.MemberId, info.ID)
	c.JSON(http.StatusAccepted, gin.H{"queued": true, "task_id": info.ID})
}
