package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"axiapac.com/attendance/attendance/importer"
	web "axiapac.com/attendance/web/common"
	"github.com/gin-gonic/gin"
)

const maxImportSize = 50 << 20

// ImportFiles accepts CSV exports as multipart "files" and imports each one.
func (ep *Endpoint) ImportFiles(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxImportSize); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
		return
	}

	files := c.Request.MultipartForm.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Field 'files' is required"))
		return
	}

	results := make(map[string]*importer.Result, len(files))
	for _, file := range files {
		if !strings.EqualFold(filepath.Ext(file.Filename), ".csv") {
			c.JSON(http.StatusBadRequest, web.NewErrorResponse(fmt.Sprintf("%s is not a .csv file", file.Filename)))
			return
		}

		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
			return
		}
		result, err := importer.Import(c.Request.Context(), ep.svc, f, ep.log.With("file", file.Filename))
		f.Close()
		if err != nil {
			ep.fail(c, err)
			return
		}
		results[file.Filename] = result
	}

	c.JSON(http.StatusOK, web.NewSuccessResponse(results))
}
