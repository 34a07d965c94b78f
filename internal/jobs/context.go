package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/materialgen-backend/internal/data/repos"
	types "github.com/yungbote/materialgen-backend/internal/domain/jobs"
	"github.com/yungbote/materialgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/materialgen-backend/internal/platform/ctxutil"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

// Context is what a handler sees of its job. Handlers never write the job row
// directly; lifecycle writes go through Progress, Fail and Succeed, all of
// which leave a canceled row alone.
type Context struct {
	Ctx  context.Context
	Job  *types.GenerationJob
	Repo repos.GenerationJobRepo
	Log  *logger.Logger

	payload  map[string]any
	finished bool
}

func NewContext(ctx context.Context, job *types.GenerationJob, repo repos.GenerationJobRepo, log *logger.Logger) *Context {
	c := &Context{Ctx: ctx, Job: job, Repo: repo, Log: log}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	if c.Ctx == nil {
		return
	}
	payload := c.Payload()
	traceID := payloadString(payload, "trace_id")
	reqID := payloadString(payload, "request_id")
	if traceID == "" && reqID == "" {
		return
	}
	td := &ctxutil.TraceData{TraceID: traceID, RequestID: reqID}
	if c.Job != nil {
		td.GenerationID = c.Job.GenerationID
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, td)
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadString(key string) string {
	return payloadString(c.Payload(), key)
}

func payloadString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (c *Context) PayloadUint(key string) (uint, bool) {
	switch v := c.Payload()[key].(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return uint(n), true
	default:
		return 0, false
	}
}

func (c *Context) jobID() uuid.UUID {
	if c == nil || c.Job == nil {
		return uuid.Nil
	}
	return c.Job.ID
}

func (c *Context) writeCtx() context.Context {
	// Terminal writes must land even when the job context is already canceled.
	if c.Ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(c.Ctx)
}

// Progress records the current stage on a running job.
func (c *Context) Progress(stage string) {
	if c == nil {
		return
	}
	now := time.Now().UTC()
	if id := c.jobID(); id != uuid.Nil && c.Repo != nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.writeCtx()}, id, []string{types.StatusCanceled}, map[string]interface{}{
			"stage":      stage,
			"updated_at": now,
		})
		if err != nil && c.Log != nil {
			c.Log.Warn("job progress write failed", "job_id", id, "error", err)
		}
		if !ok {
			return
		}
	}
	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.UpdatedAt = now
	}
}

func (c *Context) Fail(stage string, err error) {
	c.finish(types.StatusFailed, stage, err, nil)
}

func (c *Context) Succeed(finalStage string, result any) {
	c.finish(types.StatusSucceeded, finalStage, nil, result)
}

func (c *Context) cancel(stage string) {
	c.finish(types.StatusCanceled, stage, context.Canceled, nil)
}

func (c *Context) finish(status, stage string, cause error, result any) {
	if c == nil || c.finished {
		return
	}
	c.finished = true
	now := time.Now().UTC()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}
	updates := map[string]interface{}{
		"status":      status,
		"stage":       stage,
		"error":       msg,
		"updated_at":  now,
		"finished_at": now,
	}
	if res != nil {
		updates["result"] = res
	}
	if id := c.jobID(); id != uuid.Nil && c.Repo != nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.writeCtx()}, id, []string{types.StatusCanceled, types.StatusSucceeded, types.StatusFailed}, updates)
		if err != nil && c.Log != nil {
			c.Log.Warn("job terminal write failed", "job_id", id, "status", status, "error", err)
		}
		if !ok {
			return
		}
	}
	if c.Job != nil {
		c.Job.Status = status
		c.Job.Stage = stage
		c.Job.Error = msg
		c.Job.Result = res
		c.Job.UpdatedAt = now
		c.Job.FinishedAt = &now
	}
}
