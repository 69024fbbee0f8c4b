package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"actflow/internal/domain"
	"actflow/internal/handler"
	"actflow/internal/service"
	"actflow/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, _ = part.Write(content)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestMapDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrFileTypeNotFound, http.StatusNotFound, "FILE_TYPE_NOT_FOUND"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{domain.ErrResultNotFound, http.StatusNotFound, "RESULT_NOT_FOUND"},
		{domain.ErrDuplicateFileType, http.StatusConflict, "DUPLICATE_FILE_TYPE"},
		{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{domain.ErrFileBusy, http.StatusConflict, "FILE_BUSY"},
		{domain.ErrBatchClosed, http.StatusConflict, "BATCH_CLOSED"},
		{errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		status, code, _ := handler.MapDomainError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestMapDomainError_InvalidFileTypeKeepsDetail(t *testing.T) {
	_, _, msg := handler.MapDomainError(errors.Join(domain.ErrInvalidFileType, errors.New("name is required")))
	assert.Contains(t, msg, "name is required")
}

func TestFileTypeHandler_Create(t *testing.T) {
	svc := new(mocks.MockFileTypeService)
	h := handler.NewFileTypeHandler(svc)

	ft := &domain.FileType{ID: uuid.New(), Name: "huawei", ProcessorType: domain.ProcessorTypeHuaweiAct}
	svc.On("Create", mock.Anything, mock.MatchedBy(func(in service.FileTypeInput) bool {
		return in.Name == "huawei" && in.ProcessorType == "HUAWEI_ACT"
	})).Return(ft, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/file-types",
		strings.NewReader(`{"name":"huawei","processor_type":"HUAWEI_ACT"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decode(t, w).Success)
	svc.AssertExpectations(t)
}

func TestFileTypeHandler_Create_BadJSON(t *testing.T) {
	h := handler.NewFileTypeHandler(new(mocks.MockFileTypeService))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/file-types", strings.NewReader(`{`))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", decode(t, w).Error.Code)
}

func TestFileTypeHandler_GetByID_InvalidID(t *testing.T) {
	h := handler.NewFileTypeHandler(new(mocks.MockFileTypeService))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/file-types/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.GetByID(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", decode(t, w).Error.Code)
}

func TestFileTypeHandler_Delete_NotFound(t *testing.T) {
	svc := new(mocks.MockFileTypeService)
	h := handler.NewFileTypeHandler(svc)
	id := uuid.New()
	svc.On("Delete", mock.Anything, id).Return(domain.ErrFileTypeNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Delete(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchHandler_List_Paginated(t *testing.T) {
	svc := new(mocks.MockBatchService)
	h := handler.NewBatchHandler(svc, new(mocks.MockProcessingService))
	svc.On("List", mock.Anything, 0, 20).Return([]domain.Batch{{ID: uuid.New()}}, 1, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/batches?limit=500", nil)

	h.List(c)

	resp := decode(t, w)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Total)
	assert.Equal(t, 20, resp.Meta.Limit)
}

func TestBatchHandler_Upload(t *testing.T) {
	procSvc := new(mocks.MockProcessingService)
	h := handler.NewBatchHandler(new(mocks.MockBatchService), procSvc)
	batchID := uuid.New()

	procSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
		return in.BatchID == batchID && in.FileName == "act.pdf" && in.Size > 0
	})).Return(&domain.File{ID: uuid.New(), Status: domain.FileStatusQueued}, nil)

	body, contentType := multipartBody(t, nil, "act.pdf", []byte("%PDF-1.4 test"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "id", Value: batchID.String()}}

	h.Upload(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	procSvc.AssertExpectations(t)
}

func TestBatchHandler_Upload_NoFile(t *testing.T) {
	h := handler.NewBatchHandler(new(mocks.MockBatchService), new(mocks.MockProcessingService))

	body, contentType := multipartBody(t, map[string]string{"x": "y"}, "", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "id", Value: uuid.NewString()}}

	h.Upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", decode(t, w).Error.Code)
}

func TestBatchHandler_Export(t *testing.T) {
	procSvc := new(mocks.MockProcessingService)
	h := handler.NewBatchHandler(new(mocks.MockBatchService), procSvc)
	batchID := uuid.New()
	procSvc.On("ExportBatch", mock.Anything, batchID, "csv").Return(&service.ExportOutput{
		FileName: "march_2026-10-18.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("a,b\n"),
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: batchID.String()}}

	h.Export(service.FormatCSV)(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "march_2026-10-18.csv")
	assert.Equal(t, "a,b\n", w.Body.String())
}

func TestFileHandler_GetResult_NotProcessed(t *testing.T) {
	procSvc := new(mocks.MockProcessingService)
	h := handler.NewFileHandler(procSvc)
	id := uuid.New()
	procSvc.On("GetResult", mock.Anything, id).Return(nil, domain.ErrResultNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.GetResult(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESULT_NOT_FOUND", decode(t, w).Error.Code)
}

func TestFileHandler_Reprocess_Busy(t *testing.T) {
	procSvc := new(mocks.MockProcessingService)
	h := handler.NewFileHandler(procSvc)
	id := uuid.New()
	procSvc.On("Reprocess", mock.Anything, id).Return(nil, domain.ErrFileBusy)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	h.Reprocess(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFileHandler_Process_Success(t *testing.T) {
	procSvc := new(mocks.MockProcessingService)
	h := handler.NewFileHandler(procSvc)
	procSvc.On("ProcessSync", mock.Anything, mock.MatchedBy(func(in service.ProcessSyncInput) bool {
		return in.FileType == "huawei" && in.Mode == "TEXT_EXTRACTION" && string(in.Content) == "%PDF-1.4 x"
	})).Return(map[string]any{"document_type": "Акт"}, nil)

	body, contentType := multipartBody(t, map[string]string{
		"file_type":       "huawei",
		"processing_mode": "TEXT_EXTRACTION",
	}, "act.pdf", []byte("%PDF-1.4 x"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/process", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Process(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "Акт", resp.Data.(map[string]any)["document_type"])
}

func TestFileHandler_Process_PipelineError(t *testing.T) {
	procSvc := new(mocks.MockProcessingService)
	h := handler.NewFileHandler(procSvc)
	procSvc.On("ProcessSync", mock.Anything, mock.Anything).
		Return(map[string]any{"error": "No pages could be extracted from PDF"}, nil)

	body, contentType := multipartBody(t, map[string]string{"file_type": "huawei"}, "act.pdf", []byte("%PDF-1.4 x"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/process", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Process(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "No pages could be extracted from PDF", resp.Error.Message)
}

func TestFileHandler_Process_MissingFileType(t *testing.T) {
	h := handler.NewFileHandler(new(mocks.MockProcessingService))

	body, contentType := multipartBody(t, nil, "act.pdf", []byte("%PDF-1.4 x"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/process", body)
	c.Request.Header.Set("Content-Type", contentType)

	h.Process(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE_TYPE", decode(t, w).Error.Code)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealthHandler_Readiness(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code int
	}{{nil, http.StatusOK}, {errors.New("down"), http.StatusServiceUnavailable}} {
		h := handler.NewHealthHandler(pinger{err: tc.err})
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/readyz", nil)

		h.Readiness(c)

		assert.Equal(t, tc.code, w.Code)
	}
}
