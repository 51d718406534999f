package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	msgInternalError = "Internal server error"
	msgNotFound      = "Flavor not found"
	msgInvalidJSON   = "Invalid JSON"
)

// App represents the application instance
type App struct {
	db      FlavorStore
	logger  *zap.Logger
	metrics *CloudWatchMetrics
	tracer  trace.Tracer
}

// healthHandler handles health check requests
func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := app.tracer.Start(r.Context(), "healthHandler")
	defer span.End()

	var dbStatus string
	if err := app.db.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
		app.logger.Error("Database health check failed", zap.Error(err))
		span.RecordError(err)
	} else {
		dbStatus = "healthy"
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  dbStatus,
	}
	span.SetAttributes(attribute.String("health.database", dbStatus))

	writeJSON(w, http.StatusOK, response)
}

// listFlavorsHandler handles GET /api/flavors
func (app *App) listFlavorsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := app.tracer.Start(r.Context(), "listFlavorsHandler")
	defer span.End()

	flavors, err := app.db.ListFlavors(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		app.returnErrorResponse(w, r, "Failed to list flavors", err)
		return
	}

	span.SetAttributes(attribute.Int("flavors.count", len(flavors)))
	span.SetStatus(codes.Ok, "Flavors retrieved successfully")

	writeJSON(w, http.StatusOK, flavors)
}

// getFlavorHandler handles GET /api/flavors/{id}
func (app *App) getFlavorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := app.tracer.Start(r.Context(), "getFlavorHandler")
	defer span.End()

	id, err := flavorID(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid flavor ID")
		app.returnErrorResponse(w, r, "Invalid flavor ID", err)
		return
	}
	span.SetAttributes(attribute.Int("flavor.id", id))

	flavor, err := app.db.GetFlavor(ctx, id)
	if errors.Is(err, ErrFlavorNotFound) {
		span.SetStatus(codes.Error, msgNotFound)
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		app.returnErrorResponse(w, r, "Failed to get flavor", err)
		return
	}

	span.SetAttributes(attribute.String("flavor.name", flavor.Name))
	span.SetStatus(codes.Ok, "Flavor retrieved successfully")

	writeJSON(w, http.StatusOK, flavor)
}

// createFlavorHandler handles POST /api/flavors
func (app *App) createFlavorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := app.tracer.Start(r.Context(), "createFlavorHandler")
	defer span.End()

	input, err := decodeFlavorInput(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		app.logger.Warn(msgInvalidJSON, requestFields(r, zap.Error(err))...)
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	flavor, err := app.db.CreateFlavor(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		app.returnErrorResponse(w, r, "Failed to create flavor", err)
		return
	}

	span.SetAttributes(
		attribute.Int("flavor.id", flavor.ID),
		attribute.String("flavor.name", flavor.Name),
	)
	span.SetStatus(codes.Ok, "Flavor created successfully")

	go app.metrics.sendCreatedFlavorMetrics()

	writeJSON(w, http.StatusCreated, flavor)
}

// updateFlavorHandler handles PUT /api/flavors/{id}
func (app *App) updateFlavorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := app.tracer.Start(r.Context(), "updateFlavorHandler")
	defer span.End()

	id, err := flavorID(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid flavor ID")
		app.returnErrorResponse(w, r, "Invalid flavor ID", err)
		return
	}
	span.SetAttributes(attribute.Int("flavor.id", id))

	input, err := decodeFlavorInput(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		app.logger.Warn(msgInvalidJSON, requestFields(r, zap.Error(err))...)
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	flavor, err := app.db.UpdateFlavor(ctx, id, input)
	if errors.Is(err, ErrFlavorNotFound) {
		span.SetStatus(codes.Error, msgNotFound)
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		app.returnErrorResponse(w, r, "Failed to update flavor", err)
		return
	}

	span.SetStatus(codes.Ok, "Flavor updated successfully")

	writeJSON(w, http.StatusOK, flavor)
}

// deleteFlavorHandler handles DELETE /api/flavors/{id}. It answers 204
// whether or not the row existed.
func (app *App) deleteFlavorHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := app.tracer.Start(r.Context(), "deleteFlavorHandler")
	defer span.End()

	id, err := flavorID(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid flavor ID")
		app.returnErrorResponse(w, r, "Invalid flavor ID", err)
		return
	}
	span.SetAttributes(attribute.Int("flavor.id", id))

	if err := app.db.DeleteFlavor(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		app.returnErrorResponse(w, r, "Failed to delete flavor", err)
		return
	}

	span.SetStatus(codes.Ok, "Flavor deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}

// decodeFlavorInput reads the request body. An empty body counts as {}; only
// malformed JSON is an error.
func decodeFlavorInput(r *http.Request) (FlavorInput, error) {
	var input FlavorInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		return FlavorInput{}, err
	}
	return input, nil
}

func flavorID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// returnErrorResponse logs the failure and answers 500 with a generic body.
func (app *App) returnErrorResponse(w http.ResponseWriter, r *http.Request, message string, err error) {
	fields := requestFields(r, zap.Error(err))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		fields = append(fields, zap.String("pg_code", pgErr.Code))
	}
	app.logger.Error(message, fields...)

	go app.metrics.sendErrorMetric("application_error")

	writeError(w, http.StatusInternalServerError, msgInternalError)
}

func requestFields(r *http.Request, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("request_id", getRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	return append(fields, extra...)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
