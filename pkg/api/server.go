// Package api provides the REST API server for msd2midi
package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/james-see/msd2midi/pkg/converter"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title MSD2MIDI API
// @version 1.0
// @description API for converting F&C MSD game music to standard MIDI files
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.POST("/convert", handleConvert)
		v1.POST("/inspect", handleInspect)
		v1.GET("/formats", listFormats)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r.Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "msd2midi",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns a list of supported file formats and loop modes
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":     []string{"msd", "midi"},
		"conversions": converter.GetSupportedConversions(),
		"loop_modes":  []string{"meta", "cc"},
	})
}

func readUpload(c *gin.Context) ([]byte, string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, "", false
	}
	return data, header.Filename, true
}

func optionsFromQuery(c *gin.Context) (converter.Options, error) {
	loop, err := converter.ParseLoopMode(c.DefaultQuery("loop", "meta"))
	if err != nil {
		return converter.Options{}, err
	}
	return converter.Options{
		Loop:   loop,
		Strict: c.Query("strict") == "true",
	}, nil
}

// handleConvert godoc
// @Summary Convert MSD to MIDI
// @Description Upload an MSD file and receive a format-0 MIDI file
// @Tags convert
// @Accept multipart/form-data
// @Produce audio/midi
// @Param file formData file true "MSD file to convert"
// @Param loop query string false "Loop marker mode: meta or cc (default: meta)"
// @Param strict query bool false "Fail on truncated data instead of tolerating it"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert [post]
func handleConvert(c *gin.Context) {
	data, filename, ok := readUpload(c)
	if !ok {
		return
	}

	opts, err := optionsFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := converter.New(opts).Convert(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Read the output back before shipping it.
	sum, err := converter.SummarizeMIDI(result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	outputName := strings.TrimSuffix(filename, ".msd")
	if outputName == "" {
		outputName = "converted"
	}
	outputName += ".mid"

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Header("X-Midi-Events", fmt.Sprintf("%d", sum.Events))
	c.Header("X-Midi-Total-Ticks", fmt.Sprintf("%d", sum.TotalTicks))
	c.Data(http.StatusOK, "audio/midi", result)
}

// handleInspect godoc
// @Summary Inspect an MSD or MIDI file
// @Description Upload a file and receive a JSON summary of its structure
// @Tags info
// @Accept multipart/form-data
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/inspect [post]
func handleInspect(c *gin.Context) {
	data, _, ok := readUpload(c)
	if !ok {
		return
	}

	switch converter.DetectFormatFromContent(data) {
	case converter.FormatMSD:
		info, err := converter.InspectMSD(data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"format": "msd", "msd": info})
	case converter.FormatMIDI:
		sum, err := converter.SummarizeMIDI(data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"format": "midi", "midi": sum})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unrecognized file format"})
	}
}
