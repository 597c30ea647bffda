package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aksiooma/trailbuddy-app-sub000/internal/mocks"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/models"
	"github.com/aksiooma/trailbuddy-app-sub000/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func day(d int) time.Time {
	return time.Date(2024, time.June, d, 0, 0, 0, 0, time.UTC)
}

func newRouter(svc *mocks.BookingService) *gin.Engine {
	return NewBookingHandler(svc).SetupRoutes()
}

func do(r *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func problemOf(t *testing.T, w *httptest.ResponseRecorder) models.ProblemDetails {
	t.Helper()
	var p models.ProblemDetails
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func signedIn(svc *mocks.BookingService) *session.Session {
	sess := &session.Session{
		Token:     uuid.New(),
		UserID:    "anon-1",
		Method:    session.MethodAnonymous,
		StartedAt: day(1),
	}
	svc.On("Session", sess.Token).Return(sess, true)
	return sess
}

func TestHealth(t *testing.T) {
	svc := new(mocks.BookingService)
	svc.On("Catalog").Return([]models.BikeCatalogEntry{{ID: "enduro"}})

	w := do(newRouter(svc), http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestGetStockForDate_Public(t *testing.T) {
	svc := new(mocks.BookingService)
	svc.On("StockForDate", mock.Anything, (*session.Session)(nil), "enduro", models.SizeMedium, day(3)).Return(4, nil)

	w := do(newRouter(svc), http.MethodGet, "/api/v1/bikes/enduro/availability?size=medium&date=2024-06-03", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.StockResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StockResponse{BikeID: "enduro", Size: models.SizeMedium, Date: "2024-06-03", Available: 4}, resp)
}

func TestGetStockForDate_BadQuery(t *testing.T) {
	svc := new(mocks.BookingService)
	r := newRouter(svc)

	w := do(r, http.MethodGet, "/api/v1/bikes/enduro/availability?size=XL&date=2024-06-03", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "size", problemOf(t, w).Field)

	w = do(r, http.MethodGet, "/api/v1/bikes/enduro/availability?size=Small&date=June", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/bikes/enduro/availability?size=Small", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(models.ErrorCodeMissingField), problemOf(t, w).Code)

	svc.AssertNotCalled(t, "StockForDate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetStockForDate_UnknownBike(t *testing.T) {
	svc := new(mocks.BookingService)
	svc.On("StockForDate", mock.Anything, mock.Anything, "fatbike", models.SizeSmall, day(3)).
		Return(0, models.NewNotFoundError("Bike", "fatbike"))

	w := do(newRouter(svc), http.MethodGet, "/api/v1/bikes/fatbike/availability?size=Small&date=2024-06-03", nil, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(models.ErrorCodeBikeNotFound), problemOf(t, w).Code)
}

func TestGetStockForRange_OrdersDates(t *testing.T) {
	svc := new(mocks.BookingService)
	svc.On("MinStockOverRange", mock.Anything, mock.Anything, "enduro", models.SizeLarge, day(2), day(5)).Return(0, nil)

	w := do(newRouter(svc), http.MethodGet, "/api/v1/bikes/enduro/availability/range?size=Large&start=2024-06-05&end=2024-06-02", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.RangeStockResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2024-06-02", resp.StartDate)
	assert.Equal(t, 0, resp.Available)
	assert.False(t, resp.Bookable)
}

func TestSessionMiddleware(t *testing.T) {
	svc := new(mocks.BookingService)
	unknown := uuid.New()
	svc.On("Session", unknown).Return(nil, false)
	r := newRouter(svc)

	w := do(r, http.MethodGet, "/api/v1/basket", nil, "not-a-uuid")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/v1/basket", nil, unknown.String())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, string(models.ErrorCodeSessionRequired), problemOf(t, w).Code)
}

func TestSignIn(t *testing.T) {
	svc := new(mocks.BookingService)
	sess := &session.Session{Token: uuid.New(), UserID: "email-abc", Method: session.MethodEmail, StartedAt: day(1)}
	svc.On("SignIn", mock.Anything, session.Credentials{Method: session.MethodEmail, Email: "rider@example.com"}).Return(sess, nil)

	w := do(newRouter(svc), http.MethodPost, "/api/v1/sessions", gin.H{"method": "email", "email": "rider@example.com"}, "")

	require.Equal(t, http.StatusCreated, w.Code)
	var resp models.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sess.Token.String(), resp.Token)
	assert.Equal(t, "email-abc", resp.UserID)
}

func TestSignIn_InvalidBody(t *testing.T) {
	svc := new(mocks.BookingService)

	w := do(newRouter(svc), http.MethodPost, "/api/v1/sessions", gin.H{"method": "facebook"}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "SignIn", mock.Anything, mock.Anything)
}

func TestSignOut(t *testing.T) {
	svc := new(mocks.BookingService)
	sess := signedIn(svc)
	svc.On("SignOut", mock.Anything, sess.Token).Return(nil)
	r := newRouter(svc)

	w := do(r, http.MethodDelete, "/api/v1/sessions/current", nil, sess.Token.String())
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/sessions/current", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBasket_RequiresSession(t *testing.T) {
	svc := new(mocks.BookingService)
	svc.On("Basket", mock.Anything, (*session.Session)(nil)).
		Return(nil, models.NewBusinessError(models.ErrorCodeSessionRequired, "sign in to use a basket", nil))

	w := do(newRouter(svc), http.MethodGet, "/api/v1/basket", nil, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetBasket(t *testing.T) {
	svc := new(mocks.BookingService)
	sess := signedIn(svc)
	svc.On("Basket", mock.Anything, sess).Return(nil, nil)

	w := do(newRouter(svc), http.MethodGet, "/api/v1/basket", nil, sess.Token.String())

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"anon-1","items":[]}`, w.Body.String())
}

func TestAddToBasket(t *testing.T) {
	svc := new(mocks.BookingService)
	sess := signedIn(svc)
	want := models.BasketEntry{BikeID: "enduro", Size: models.SizeSmall, Quantity: 1, StartDate: day(2), EndDate: day(3)}
	added := want
	added.ReservationID = "3f1c8a3e-2b7e-4c55-9a51-0f9a1b0c7d11"
	svc.On("AddToBasket", mock.Anything, sess, want).Return(&added, nil)

	w := do(newRouter(svc), http.MethodPost, "/api/v1/basket", gin.H{
		"bike_id": "enduro", "size": "small", "quantity": 1,
		"start_date": "2024-06-02", "end_date": "2024-06-03",
	}, sess.Token.String())

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/v1/basket/"+added.ReservationID, w.Header().Get("Location"))
}

func TestAddToBasket_InsufficientStock(t *testing.T) {
	svc := new(mocks.BookingService)
	sess := signedIn(svc)
	svc.On("AddToBasket", mock.Anything, sess, mock.Anything).Return(nil,
		models.NewBusinessError(models.ErrorCodeInsufficientStock, "only 1 Small enduro available", map[string]any{"requested": 3, "available": 1}))

	w := do(newRouter(svc), http.MethodPost, "/api/v1/basket", gin.H{
		"bike_id": "enduro", "size": "Small", "quantity": 3,
		"start_date": "2024-06-02", "end_date": "2024-06-03",
	}, sess.Token.String())

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(models.ErrorCodeInsufficientStock), problemOf(t, w).Code)
}

func TestAddToBasket_BadDate(t *testing.T) {
	svc := new(mocks.BookingService)
	sess := signedIn(svc)

	w := do(newRouter(svc), http.MethodPost, "/api/v1/basket", gin.H{
		"bike_id": "enduro", "size": "Small", "quantity": 1,
		"start_date": "02/06/2024", "end_date": "2024-06-03",
	}, sess.Token.String())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "start_date", problemOf(t, w).Field)
}

func TestRemoveFromBasket(t *testing.T) {
	svc := new(mocks.BookingService)
	sess := signedIn(svc)
	svc.On("RemoveFromBasket", mock.Anything, sess, "r1").Return(nil)
	svc.On("RemoveFromBasket", mock.Anything, sess, "r2").Return(models.NewNotFoundError("Reservation", "r2"))
	r := newRouter(svc)

	w := do(r, http.MethodDelete, "/api/v1/basket/r1", nil, sess.Token.String())
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodDelete, "/api/v1/basket/r2", nil, sess.Token.String())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(models.ErrorCodeReservationNotFound), problemOf(t, w).Code)
}

func TestInternalErrorsAreHidden(t *testing.T) {
	svc := new(mocks.BookingService)
	svc.On("Table", mock.Anything, mock.Anything).
		Return(nil, models.NewSystemError(models.ErrorCodeDatabaseError, "reservation_repository", "password authentication failed", nil))

	w := do(newRouter(svc), http.MethodGet, "/api/v1/availability", nil, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestAddToBasket_OutsideWindow(t *testing.T) {
	svc := new(mocks.BookingService)
	sess := signedIn(svc)
	svc.On("AddToBasket", mock.Anything, sess, mock.MatchedBy(func(e models.BasketEntry) bool {
		return e.StartDate.Year() == 2020
	})).Return(nil, models.NewValidationError("start_date", "must be between 2024-06-01 and 2024-06-30", "2020-01-01"))
	svc.On("AddToBasket", mock.Anything, sess, mock.MatchedBy(func(e models.BasketEntry) bool {
		return e.EndDate.Month() == time.July
	})).Return(nil, models.NewValidationError("end_date", "must be between 2024-06-01 and 2024-06-30", "2024-07-31"))
	r := newRouter(svc)

	w := do(r, http.MethodPost, "/api/v1/basket", gin.H{
		"bike_id": "enduro", "size": "Large", "quantity": 1,
		"start_date": "2020-01-01", "end_date": "2020-01-01",
	}, sess.Token.String())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "start_date", problemOf(t, w).Field)

	w = do(r, http.MethodPost, "/api/v1/basket", gin.H{
		"bike_id": "enduro", "size": "Large", "quantity": 1,
		"start_date": "2024-06-29", "end_date": "2024-07-31",
	}, sess.Token.String())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "end_date", problemOf(t, w).Field)
}

func TestGetStockForRange_OutsideWindow(t *testing.T) {
	svc := new(mocks.BookingService)
	svc.On("MinStockOverRange", mock.Anything, mock.Anything, "enduro", models.SizeLarge, mock.Anything, mock.Anything).
		Return(0, models.NewValidationError("start", "must be between 2024-06-01 and 2024-06-30", "0001-01-01"))

	w := do(newRouter(svc), http.MethodGet, "/api/v1/bikes/enduro/availability/range?size=Large&start=0001-01-01&end=9999-12-31", nil, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "start", problemOf(t, w).Field)
}
