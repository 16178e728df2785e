package ui

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"gopanel/adapters/excel"
	"gopanel/adapters/summary"
	"gopanel/app"
	"gopanel/domain/core"
	"gopanel/domain/panel"
	"gopanel/internal/errors"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCreateAnalysis runs the pipeline on an uploaded CSV or XLSX file
func (s *Server) handleCreateAnalysis(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.limits.MaxUploadBytes())

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("upload exceeds %d MB", s.limits.MaxUploadMB),
				"code":  errors.CodeInvalidInput,
			})
			return
		}
		s.respondError(c, errors.InvalidInput(`multipart field "file" is required`))
		return
	}

	file, err := header.Open()
	if err != nil {
		s.respondError(c, errors.Wrap(err, "failed to open upload"))
		return
	}
	defer file.Close()

	table, err := excel.ReadTableFrom(file, excel.FileTypeOf(header.Filename), s.reader)
	if err != nil {
		s.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := s.runs.Acquire(ctx, 1); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis capacity unavailable"})
		return
	}
	defer s.runs.Release(1)

	report, err := s.service.Run(ctx, table, selectionFromForm(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.reports.Put(report)
	s.logger.Info("stored report %s (%d cached)", report.RunID, s.reports.Len())

	c.JSON(http.StatusCreated, report)
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	report, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleDownloadReport(c *gin.Context) {
	report, ok := s.lookup(c)
	if !ok {
		return
	}

	// Buffer so a failed export can still answer with JSON
	var buf bytes.Buffer
	if err := s.writer.WriteTo(&buf, report); err != nil {
		s.respondError(c, errors.Wrap(err, "failed to export report"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="panel_report_%s.xlsx"`, report.RunID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// handleSummary serves the summary as HTML, or Markdown with ?format=md
func (s *Server) handleSummary(c *gin.Context) {
	report, ok := s.lookup(c)
	if !ok {
		return
	}
	if c.Query("format") == "md" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(summary.Markdown(report)))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", summary.HTML(report))
}

func (s *Server) lookup(c *gin.Context) (*app.AnalysisReport, bool) {
	id := c.Param("id")
	report, ok := s.reports.Get(id)
	if !ok {
		s.respondError(c, fmt.Errorf("%w %s", core.ErrRunNotFound, id))
		return nil, false
	}
	return report, true
}

// respondError classifies err and answers with its status and code
func (s *Server) respondError(c *gin.Context, err error) {
	err = errors.FromDomain(err)
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}

// selectionFromForm reads entity, time, y and x. Each x value may itself be
// a comma-separated list.
func selectionFromForm(c *gin.Context) panel.Selection {
	var xs []string
	for _, v := range c.PostFormArray("x") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				xs = append(xs, name)
			}
		}
	}
	return panel.Selection{
		Entity: strings.TrimSpace(c.PostForm("entity")),
		Time:   strings.TrimSpace(c.PostForm("time")),
		Model: panel.ModelSpec{
			Dependent:    strings.TrimSpace(c.PostForm("y")),
			Independents: xs,
		},
	}
}
