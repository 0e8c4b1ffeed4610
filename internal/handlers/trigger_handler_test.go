package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"queuedesk/internal/models"
	"queuedesk/internal/services"
)

func newHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:handlers_" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{},
		&models.Queue{},
		&models.Form{},
		&models.FormField{},
		&models.Ticket{},
		&models.TicketComment{},
		&models.TicketStatus{},
		&models.TicketFieldValue{},
		&models.Trigger{},
		&models.AutomationRun{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTriggerRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newHandlerTestDB(t)
	logger := quietLogger()
	svc := services.NewAutomationService(db, logger)
	r := gin.New()
	api := r.Group("/api")
	RegisterTriggerRoutes(api, NewTriggerHandler(svc, logger))
	return r, db
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTriggerHandler_CreateDerivesEvent(t *testing.T) {
	r, _ := newTriggerRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/triggers", map[string]interface{}{
		"name": "route hardware",
		"conditions": map[string]interface{}{
			"all": []map[string]string{
				{"field": "ticket_event", "operator": "equals", "value": "created"},
				{"field": "form", "operator": "equals", "value": "12"},
			},
		},
		"actions": []map[string]string{
			{"type": "assign_queue", "value": "8"},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var trig models.Trigger
	if err := json.Unmarshal(w.Body.Bytes(), &trig); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if trig.ID == 0 {
		t.Fatal("expected persisted id")
	}
	if trig.Event != "ticket.created" {
		t.Fatalf("expected derived event ticket.created, got %q", trig.Event)
	}
	if !trig.Active {
		t.Fatal("expected trigger active by default")
	}
}

func TestTriggerHandler_CreateRejectsEmptyConditions(t *testing.T) {
	r, _ := newTriggerRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/triggers", map[string]interface{}{
		"name":    "no conditions",
		"actions": []map[string]string{{"type": "set_priority", "value": "high"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected error body")
	}
}

func TestTriggerHandler_UpdateRederivesEvent(t *testing.T) {
	r, _ := newTriggerRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/triggers", map[string]interface{}{
		"name": "scoped",
		"conditions": map[string]interface{}{
			"all": []map[string]string{
				{"field": "ticket_event", "operator": "equals", "value": "created"},
			},
		},
		"actions": []map[string]string{{"type": "set_priority", "value": "high"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	var created models.Trigger
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	w2 := doJSON(t, r, http.MethodPut, "/api/triggers/"+itoa(created.ID), map[string]interface{}{
		"name": "scoped",
		"conditions": map[string]interface{}{
			"all": []map[string]string{
				{"field": "priority", "operator": "equals", "value": "high"},
			},
		},
		"actions": []map[string]string{{"type": "set_status", "value": "in_progress"}},
	})
	if w2.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", w2.Code, w2.Body.String())
	}
	var updated models.Trigger
	if err := json.Unmarshal(w2.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if updated.Event != "ticket.updated" {
		t.Fatalf("expected event ticket.updated after update, got %q", updated.Event)
	}
}

func TestTriggerHandler_GetAndDelete(t *testing.T) {
	r, _ := newTriggerRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/triggers", map[string]interface{}{
		"name": "to delete",
		"conditions": map[string]interface{}{
			"all": []map[string]string{
				{"field": "priority", "operator": "equals", "value": "low"},
			},
		},
		"actions": []map[string]string{{"type": "set_priority", "value": "medium"}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	var trig models.Trigger
	if err := json.Unmarshal(w.Body.Bytes(), &trig); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if w2 := doJSON(t, r, http.MethodGet, "/api/triggers/"+itoa(trig.ID), nil); w2.Code != http.StatusOK {
		t.Fatalf("get status=%d body=%s", w2.Code, w2.Body.String())
	}
	if w3 := doJSON(t, r, http.MethodDelete, "/api/triggers/"+itoa(trig.ID), nil); w3.Code != http.StatusOK {
		t.Fatalf("delete status=%d body=%s", w3.Code, w3.Body.String())
	}
	if w4 := doJSON(t, r, http.MethodDelete, "/api/triggers/"+itoa(trig.ID), nil); w4.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d body=%s", w4.Code, w4.Body.String())
	}
	if w5 := doJSON(t, r, http.MethodGet, "/api/triggers/"+itoa(trig.ID), nil); w5.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d body=%s", w5.Code, w5.Body.String())
	}
}

func TestTriggerHandler_InvalidID(t *testing.T) {
	r, _ := newTriggerRouter(t)

	if w := doJSON(t, r, http.MethodGet, "/api/triggers/abc", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestTriggerHandler_ListRuns(t *testing.T) {
	r, db := newTriggerRouter(t)

	for i := 0; i < 3; i++ {
		run := models.AutomationRun{TriggerID: 1, TicketID: uint(i + 1), Event: "ticket.created", Status: "success"}
		if err := db.Create(&run).Error; err != nil {
			t.Fatalf("seed run: %v", err)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/triggers/runs?page=1&page_size=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var page PaginatedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("expected total 3, got %d", page.Total)
	}
	if page.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", page.Pages)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
