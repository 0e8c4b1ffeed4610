package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"queuedesk/internal/models"
	"queuedesk/internal/services"
)

func newQueueRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newHandlerTestDB(t)
	svc := services.NewQueueService(db)
	r := gin.New()
	api := r.Group("/api")
	RegisterQueueRoutes(api, NewQueueHandler(svc, quietLogger()))
	return r, db
}

func TestQueueHandler_List_Empty(t *testing.T) {
	r, _ := newQueueRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/queues", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var queues []models.Queue
	err := json.Unmarshal(w.Body.Bytes(), &queues)
	assert.NoError(t, err)
	assert.Empty(t, queues)
}

func TestQueueHandler_CreateGetUpdateDelete(t *testing.T) {
	r, _ := newQueueRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/queues", map[string]interface{}{
		"name":        "Network",
		"description": "connectivity and VPN",
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var queue models.Queue
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &queue))
	assert.True(t, queue.Active)

	w2 := doJSON(t, r, http.MethodGet, "/api/queues/"+itoa(queue.ID), nil)
	assert.Equal(t, http.StatusOK, w2.Code)

	w3 := doJSON(t, r, http.MethodPut, "/api/queues/"+itoa(queue.ID), map[string]interface{}{
		"name": "Networking",
	})
	assert.Equal(t, http.StatusOK, w3.Code, w3.Body.String())
	var updated models.Queue
	assert.NoError(t, json.Unmarshal(w3.Body.Bytes(), &updated))
	assert.Equal(t, "Networking", updated.Name)

	w4 := doJSON(t, r, http.MethodDelete, "/api/queues/"+itoa(queue.ID), nil)
	assert.Equal(t, http.StatusOK, w4.Code)

	w5 := doJSON(t, r, http.MethodGet, "/api/queues/"+itoa(queue.ID), nil)
	assert.Equal(t, http.StatusNotFound, w5.Code)
}

func TestQueueHandler_CreateRequiresName(t *testing.T) {
	r, _ := newQueueRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/queues", map[string]interface{}{
		"description": "nameless",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueueHandler_ListResolvers(t *testing.T) {
	r, db := newQueueRouter(t)
	seedHandlerUser(t, db, 1, "requester")
	seedHandlerUser(t, db, 2, "resolver")
	seedHandlerUser(t, db, 3, "admin")

	w := doJSON(t, r, http.MethodGet, "/api/resolvers", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resolvers []models.User
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolvers))
	assert.Len(t, resolvers, 2)
	for _, u := range resolvers {
		assert.NotEqual(t, "requester", u.Role)
	}
}

func TestQueueHandler_Stats(t *testing.T) {
	r, db := newQueueRouter(t)
	seedHandlerUser(t, db, 1, "requester")

	w := doJSON(t, r, http.MethodPost, "/api/queues", map[string]interface{}{
		"name": "Hardware",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	var queue models.Queue
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &queue))

	ticket := models.Ticket{
		Title:       "broken dock",
		RequesterID: 1,
		QueueID:     &queue.ID,
		Status:      "open",
		Priority:    "medium",
		Reference:   "T-stats-1",
	}
	assert.NoError(t, db.Create(&ticket).Error)

	w2 := doJSON(t, r, http.MethodGet, "/api/queues/stats", nil)
	assert.Equal(t, http.StatusOK, w2.Code, w2.Body.String())

	var stats []services.QueueStats
	assert.NoError(t, json.Unmarshal(w2.Body.Bytes(), &stats))
	assert.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Open)
}
