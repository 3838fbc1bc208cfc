// agentcored is the orchestration core's HTTP entry point: it wires the
// MemoryStore, ToolRegistry, LLM client, approval gate, and Orchestrator
// together and exposes them over a Gin router.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/tarsy-labs/agentcore/pkg/approval"
	"github.com/tarsy-labs/agentcore/pkg/config"
	"github.com/tarsy-labs/agentcore/pkg/executor"
	"github.com/tarsy-labs/agentcore/pkg/llmclient"
	"github.com/tarsy-labs/agentcore/pkg/orchestrator"
	"github.com/tarsy-labs/agentcore/pkg/store"
	"github.com/tarsy-labs/agentcore/pkg/tools"
	"github.com/tarsy-labs/agentcore/pkg/version"
	"github.com/tarsy-labs/agentcore/pkg/workflow"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: Could not load %s file: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "debug")
	gin.SetMode(ginMode)

	log.Printf("Starting agentcored")
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx := context.Background()

	configPath := filepath.Join(*configDir, "agentcore.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	memStore, err := store.New(ctx, store.Config{
		URL:      cfg.Database.URL,
		MaxConns: int32(cfg.Database.MaxConns),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer memStore.Close()
	log.Println("Connected to PostgreSQL database")

	registry := tools.NewRegistry()
	fileReadTool, err := tools.NewFileReadTool(tools.FileReadConfig{
		BaseDir:       cfg.Tool.FileRead.BaseDir,
		AllowSymlinks: cfg.Tool.FileRead.AllowSymlinks,
		MaxSizeBytes:  cfg.Tool.FileRead.MaxSizeBytes,
		MaxPathLength: cfg.Tool.FileRead.MaxPathLength,
	})
	if err != nil {
		log.Fatalf("Failed to initialize file_read tool: %v", err)
	}
	registry.Register(fileReadTool)
	registry.Register(tools.NewCommandRunnerTool(tools.CommandRunnerConfig{
		Timeout:         cfg.Tool.CodeRunner.Timeout,
		AllowedCommands: cfg.Tool.CodeRunner.AllowedCommands,
	}))
	registry.Register(tools.NewWebSearchTool())
	registry.Register(tools.NewTTSTool(cfg.Tool.Audio.OutputDir))
	log.Println("Tool registry populated: file_read, command_runner, web_search, text_to_speech")

	llm := llmclient.New(llmclient.Config{
		APIKey:     cfg.LLM.APIKey,
		Model:      cfg.LLM.Model,
		BaseURL:    cfg.LLM.BaseURL,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
	})

	approvalMode := getEnv("APPROVAL_MODE", "http")
	var handler approval.Handler
	var httpHandler *approval.HTTPHandler
	if approvalMode == "console" {
		handler = approval.NewConsoleHandler(os.Stdin, os.Stdout)
		log.Println("Approval gate: console handler")
	} else {
		httpHandler = approval.NewHTTPHandler()
		handler = httpHandler
		log.Println("Approval gate: HTTP decision-endpoint handler")
	}
	gate := approval.New(handler, 5*time.Minute)

	orch := orchestrator.New(memStore, llm, registry, gate, orchestrator.Config{
		Executor: executor.Config{
			MaxParallelism: cfg.Executor.MaxParallelism,
			TaskTimeout:    time.Duration(cfg.Executor.TaskTimeoutSeconds) * time.Second,
			ShutdownGrace:  cfg.Executor.ShutdownGrace,
		},
	})

	router := gin.Default()

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": version.Full(), "git_commit": version.GitCommit})
	})

	router.GET("/health", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		health := memStore.Health(reqCtx)
		status := http.StatusOK
		if !health.Healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"status": healthLabel(health.Healthy),
			"database": gin.H{
				"healthy":        health.Healthy,
				"response_time":  health.ResponseTime.String(),
				"acquired_conns": health.AcquiredConn,
				"idle_conns":     health.IdleConn,
				"max_conns":      health.MaxConns,
				"error":          health.Error,
			},
		})
	})

	router.POST("/v1/runs", func(c *gin.Context) {
		var req submitRunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Plan.WorkflowID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "plan.workflow_id is required"})
			return
		}

		results, err := orch.Run(c.Request.Context(), req.Plan.WorkflowID, req.UserRequest, req.Plan)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"workflow_id": req.Plan.WorkflowID,
				"error":       err.Error(),
				"results":     results,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"workflow_id": req.Plan.WorkflowID,
			"results":     results,
		})
	})

	router.GET("/v1/runs/:workflow_id", func(c *gin.Context) {
		run, ok, err := memStore.LoadRun(c.Request.Context(), c.Param("workflow_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusOK, run)
	})

	if httpHandler != nil {
		router.GET("/v1/approvals", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"pending": httpHandler.Pending()})
		})

		router.POST("/v1/approvals/:gate_id/decision", func(c *gin.Context) {
			var req approvalDecisionRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			state, err := parseDecisionState(req.Decision)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			resp := approval.Response{State: state, Comment: req.Comment}
			if !gate.Resolve(c.Param("gate_id"), resp) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no pending approval with that id"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"gate_id": c.Param("gate_id"), "decision": req.Decision})
		})
	}

	log.Printf("HTTP server listening on :%s", httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// submitRunRequest is the HTTP request body for POST /v1/runs.
type submitRunRequest struct {
	UserRequest string        `json:"user_request"`
	Plan        workflow.Plan `json:"plan"`
}

// approvalDecisionRequest is the HTTP request body for
// POST /v1/approvals/:gate_id/decision.
type approvalDecisionRequest struct {
	Decision string `json:"decision"` // "approve" or "reject"
	Comment  string `json:"comment,omitempty"`
}

var errInvalidDecision = errors.New(`decision must be "approve" or "reject"`)

func parseDecisionState(decision string) (approval.State, error) {
	switch decision {
	case "approve":
		return approval.StateApproved, nil
	case "reject":
		return approval.StateRejected, nil
	default:
		return "", errInvalidDecision
	}
}

func healthLabel(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "unhealthy"
}
