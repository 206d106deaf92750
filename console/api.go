// Copyright 2026 The NATS Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package console

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nats-io/nats-console/console/models"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type overridesRequest struct {
	Variables map[string]string `json:"variables"`
}

type variableRequest struct {
	Value string `json:"value"`
}

type subscribeRequest struct {
	Topic string `json:"topic"`
}

type previewResponse struct {
	ResolvedMessage
	UsedVariables []string `json:"usedVariables"`
}

type connectionResponse struct {
	ConnectionState
	JetStream bool `json:"jetStream"`
}

type historyResponse struct {
	Entries  []models.HistoryEntry `json:"entries"`
	InFlight []models.HistoryEntry `json:"inFlight"`
}

func (c *Console) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), c.requestLogger())

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "ok")
	})

	authed := r.Group("/", c.httpAuthMiddleware())
	authed.GET("/metrics", gin.WrapH(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})))

	api := authed.Group("/api")

	api.GET("/servers", c.listServers)
	api.POST("/servers", c.addServer)
	api.PATCH("/servers/:id", c.updateServer)
	api.DELETE("/servers/:id", c.deleteServer)
	api.POST("/servers/:id/activate", c.activateServer)
	api.POST("/servers/:id/test", c.testServer)

	api.GET("/connection", c.connectionState)
	api.POST("/connection/connect", c.connect)
	api.POST("/connection/disconnect", c.disconnect)

	api.GET("/topics", c.listTopics)
	api.POST("/topics", c.addTopic)
	api.PATCH("/topics/:id", c.updateTopic)
	api.DELETE("/topics/:id", c.deleteTopic)
	api.POST("/topics/:id/preview", c.previewTopic)
	api.POST("/topics/:id/dispatch", c.dispatchTopic)
	api.POST("/dispatch", c.dispatchCustom)

	api.GET("/history", c.listHistory)
	api.DELETE("/history", c.clearHistory)

	api.GET("/variables", c.listVariables)
	api.PUT("/variables/:key", c.setVariable)
	api.DELETE("/variables/:key", c.deleteVariable)

	api.GET("/config", c.exportConfig)
	api.POST("/config", c.importConfig)
	api.DELETE("/config", c.clearAll)

	api.GET("/streams", c.listStreams)

	api.GET("/subscriptions", c.listSubscriptions)
	api.POST("/subscriptions", c.subscribe)
	api.GET("/subscriptions/messages", c.listMessages)
	api.DELETE("/subscriptions/messages", c.clearMessages)
	api.DELETE("/subscriptions/:id", c.unsubscribe)
	api.GET("/subscriptions/:id/stream", c.streamSubscription)

	return r
}

func (c *Console) requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		c.logger.Debugf("%s %s %d %s", ctx.Request.Method, ctx.Request.URL.Path, ctx.Writer.Status(), time.Since(start))
	}
}

func (c *Console) httpAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c.opts.HTTPUser == "" {
			ctx.Next()
			return
		}
		user, pass, ok := ctx.Request.BasicAuth()
		if !ok || !c.isValidUserPass(user, pass) {
			ctx.Header("WWW-Authenticate", `Basic realm="nats-console"`)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization failed"})
			return
		}
		ctx.Next()
	}
}

// statusFor maps console errors to HTTP status codes.
func statusFor(err error) int {
	var (
		ife *ImportFormatError
		ce  *ConnectionError
		rte *RequestTimeoutError
	)
	switch {
	case IsValidation(err), errors.As(err, &ife):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrAlreadySubscribed):
		return http.StatusConflict
	case errors.As(err, &ce):
		return http.StatusBadGateway
	case errors.Is(err, ErrJetStreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &rte):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (c *Console) writeError(ctx *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.logger.Errorf("%s %s: %s", ctx.Request.Method, ctx.Request.URL.Path, err)
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

func notFound(ctx *gin.Context, what string) {
	ctx.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

// bindOptionalJSON decodes the body into v. An empty body leaves v untouched.
func bindOptionalJSON(ctx *gin.Context, v interface{}) error {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return newValidationError(fmt.Sprintf("invalid request body: %s", err))
	}
	return nil
}

func bindJSON(ctx *gin.Context, v interface{}) error {
	if err := ctx.ShouldBindJSON(v); err != nil {
		return newValidationError(fmt.Sprintf("invalid request body: %s", err))
	}
	return nil
}

func (c *Console) listServers(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.store.Servers())
}

func (c *Console) addServer(ctx *gin.Context) {
	var srv models.ServerProfile
	if err := bindJSON(ctx, &srv); err != nil {
		c.writeError(ctx, err)
		return
	}
	created, err := c.store.AddServer(srv)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, created)
}

func (c *Console) updateServer(ctx *gin.Context) {
	var patch models.ServerPatch
	if err := bindJSON(ctx, &patch); err != nil {
		c.writeError(ctx, err)
		return
	}
	id := ctx.Param("id")
	ok, err := c.store.UpdateServer(id, patch)
	if !ok {
		notFound(ctx, "server")
		return
	}
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	srv, _ := c.store.Server(id)
	ctx.JSON(http.StatusOK, srv)
}

func (c *Console) deleteServer(ctx *gin.Context) {
	ok, err := c.store.DeleteServer(ctx.Param("id"))
	if !ok {
		notFound(ctx, "server")
		return
	}
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *Console) activateServer(ctx *gin.Context) {
	id := ctx.Param("id")
	ok, err := c.store.SetActive(id)
	if !ok {
		notFound(ctx, "server")
		return
	}
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	srv, _ := c.store.Server(id)
	ctx.JSON(http.StatusOK, srv)
}

func (c *Console) testServer(ctx *gin.Context) {
	srv, ok := c.store.Server(ctx.Param("id"))
	if !ok {
		notFound(ctx, "server")
		return
	}
	if err := c.TestServer(ctx.Request.Context(), srv); err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

func (c *Console) connectionState(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, connectionResponse{
		ConnectionState: c.store.Connection(),
		JetStream:       c.client.JetStreamAvailable(),
	})
}

func (c *Console) connect(ctx *gin.Context) {
	if err := c.Connect(ctx.Request.Context()); err != nil {
		c.writeError(ctx, err)
		return
	}
	c.connectionState(ctx)
}

func (c *Console) disconnect(ctx *gin.Context) {
	if err := c.Disconnect(); err != nil {
		c.writeError(ctx, err)
		return
	}
	c.connectionState(ctx)
}

func (c *Console) listTopics(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.store.Topics())
}

func (c *Console) addTopic(ctx *gin.Context) {
	var t models.TopicTemplate
	if err := bindJSON(ctx, &t); err != nil {
		c.writeError(ctx, err)
		return
	}
	created, err := c.store.AddTopic(t)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, created)
}

func (c *Console) updateTopic(ctx *gin.Context) {
	var patch models.TopicPatch
	if err := bindJSON(ctx, &patch); err != nil {
		c.writeError(ctx, err)
		return
	}
	id := ctx.Param("id")
	ok, err := c.store.UpdateTopic(id, patch)
	if !ok {
		notFound(ctx, "topic")
		return
	}
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	t, _ := c.store.Topic(id)
	ctx.JSON(http.StatusOK, t)
}

func (c *Console) deleteTopic(ctx *gin.Context) {
	ok, err := c.store.DeleteTopic(ctx.Param("id"))
	if !ok {
		notFound(ctx, "topic")
		return
	}
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *Console) previewTopic(ctx *gin.Context) {
	t, ok := c.store.Topic(ctx.Param("id"))
	if !ok {
		notFound(ctx, "topic")
		return
	}
	var req overridesRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		c.writeError(ctx, err)
		return
	}

	used := UsedVariables(t.Topic + "\n" + t.Payload + "\n" + t.ResponseTopic)
	if used == nil {
		used = []string{}
	}
	ctx.JSON(http.StatusOK, previewResponse{
		ResolvedMessage: ResolveTemplate(t, c.store.GlobalVariables(), req.Variables),
		UsedVariables:   used,
	})
}

func (c *Console) dispatchTopic(ctx *gin.Context) {
	t, ok := c.store.Topic(ctx.Param("id"))
	if !ok {
		notFound(ctx, "topic")
		return
	}
	var req overridesRequest
	if err := bindOptionalJSON(ctx, &req); err != nil {
		c.writeError(ctx, err)
		return
	}
	entry, err := c.dispatcher.DispatchTemplate(ctx.Request.Context(), t, req.Variables)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, entry)
}

func (c *Console) dispatchCustom(ctx *gin.Context) {
	var m CustomMessage
	if err := bindJSON(ctx, &m); err != nil {
		c.writeError(ctx, err)
		return
	}
	entry, err := c.dispatcher.DispatchCustom(ctx.Request.Context(), m)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, entry)
}

func (c *Console) listHistory(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, historyResponse{
		Entries:  c.dispatcher.History().List(),
		InFlight: c.dispatcher.InFlight(),
	})
}

func (c *Console) clearHistory(ctx *gin.Context) {
	c.dispatcher.History().Clear()
	ctx.Status(http.StatusNoContent)
}

func (c *Console) listVariables(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.store.GlobalVariables())
}

func (c *Console) setVariable(ctx *gin.Context) {
	var req variableRequest
	if err := bindJSON(ctx, &req); err != nil {
		c.writeError(ctx, err)
		return
	}
	if err := c.store.SetGlobalVariable(ctx.Param("key"), req.Value); err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, c.store.GlobalVariables())
}

func (c *Console) deleteVariable(ctx *gin.Context) {
	if err := c.store.DeleteGlobalVariable(ctx.Param("key")); err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *Console) exportConfig(ctx *gin.Context) {
	format := DocumentFormat(ctx.DefaultQuery("format", string(FormatJSON)))
	doc := c.store.ExportConfig()

	var buf bytes.Buffer
	if err := EncodeConfigDocument(&buf, doc, format); err != nil {
		c.writeError(ctx, newValidationError(err.Error()))
		return
	}

	name := ExportFilename(*doc.ExportedAt)
	contentType := "application/json"
	switch format {
	case FormatYAML:
		name = strings.TrimSuffix(name, ".json") + ".yaml"
		contentType = "application/yaml"
	case FormatJSONGzip:
		name += ".gz"
		contentType = "application/gzip"
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	ctx.Data(http.StatusOK, contentType, buf.Bytes())
}

func (c *Console) importConfig(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	format := FormatJSON
	if strings.Contains(ctx.ContentType(), "yaml") {
		format = FormatYAML
	}
	doc, err := DecodeConfigDocument(body, format)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	if err := c.store.ImportConfig(doc); err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"servers":   len(doc.Servers),
		"topics":    len(doc.Topics),
		"variables": len(doc.Variables),
	})
}

func (c *Console) clearAll(ctx *gin.Context) {
	if err := c.store.ClearAll(); err != nil {
		c.writeError(ctx, err)
		return
	}
	c.subs.ConnectionClosed()
	ctx.Status(http.StatusNoContent)
}

func (c *Console) listStreams(ctx *gin.Context) {
	names, err := c.client.StreamNames()
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	ctx.JSON(http.StatusOK, gin.H{"streams": names})
}

func (c *Console) listSubscriptions(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.subs.List())
}

func (c *Console) subscribe(ctx *gin.Context) {
	var req subscribeRequest
	if err := bindJSON(ctx, &req); err != nil {
		c.writeError(ctx, err)
		return
	}
	info, err := c.subs.Subscribe(req.Topic)
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, info)
}

func (c *Console) unsubscribe(ctx *gin.Context) {
	ok, err := c.subs.Unsubscribe(ctx.Param("id"))
	if !ok {
		notFound(ctx, "subscription")
		return
	}
	if err != nil {
		c.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *Console) listMessages(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.subs.Messages())
}

func (c *Console) clearMessages(ctx *gin.Context) {
	c.subs.ClearMessages()
	ctx.Status(http.StatusNoContent)
}
