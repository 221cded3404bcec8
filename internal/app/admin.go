package app

import (
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/commonshub/core/internal/pkg/nativelog"
	"github.com/commonshub/core/internal/pkg/response"
	"github.com/commonshub/core/internal/pkg/taskqueue"
)

// registerTaskRoutes exposes the delivery task queue to the admin.
func (a *App) registerTaskRoutes(rg *gin.RouterGroup, taskSvc *taskqueue.Service, authMW gin.HandlerFunc) {
	g := rg.Group("/tasks", authMW)

	g.GET("", func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 100 {
			size = 20
		}

		var taskType *string
		if v := c.Query("type"); v != "" {
			taskType = &v
		}
		var status *taskqueue.TaskStatus
		if v := c.Query("status"); v != "" {
			st := taskqueue.TaskStatus(v)
			status = &st
		}

		tasks, total, err := taskSvc.List(c.Request.Context(), page, size, taskType, status)
		if err != nil {
			response.InternalError(c, "failed to list tasks")
			return
		}
		totalPage := int((total + int64(size) - 1) / int64(size))
		response.Paged(c, tasks, response.Pagination{
			Total:       total,
			CurrentPage: page,
			TotalPage:   totalPage,
			Size:        size,
			HasNextPage: page < totalPage,
		})
	})

	g.GET("/:id", func(c *gin.Context) {
		task, err := taskSvc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.InternalError(c, "failed to load task")
			return
		}
		if task == nil {
			response.NotFound(c)
			return
		}
		response.OK(c, task)
	})

	g.POST("/:id/cancel", func(c *gin.Context) {
		if err := taskSvc.Cancel(c.Request.Context(), c.Param("id")); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		response.OK(c, gin.H{"ok": true})
	})

	g.DELETE("/:id", func(c *gin.Context) {
		if err := taskSvc.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.NoContent(c)
	})

	g.DELETE("", func(c *gin.Context) {
		if err := taskSvc.DeleteFinished(c.Request.Context(), time.Now().UnixMilli()); err != nil {
			response.InternalError(c, "failed to purge tasks")
			return
		}
		response.NoContent(c)
	})
}

// registerLogRoutes streams realtime log frames to the admin over SSE.
func (a *App) registerLogRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/log", authMW)

	g.GET("/stream", func(c *gin.Context) {
		id, ch := nativelog.Subscribe(0)
		defer nativelog.Unsubscribe(id)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case frame, ok := <-ch:
				if !ok {
					return false
				}
				c.SSEvent("log", frame)
				return true
			}
		})
	})
}

// registerCronRoutes exposes scheduled jobs to the admin.
func (a *App) registerCronRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/cron", authMW)

	g.GET("", func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})

	g.POST("/:name/run", func(c *gin.Context) {
		if err := a.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.OK(c, gin.H{"ok": true})
	})
}
