// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/gotm/auth"
	"github.com/danielhkuo/gotm/cliparse"
	"github.com/danielhkuo/gotm/middleware"
	"github.com/danielhkuo/gotm/models"
)

type DeviceHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewDeviceHandler(db *sql.DB, cfg cliparse.Config) *DeviceHandler {
	return &DeviceHandler{db: db, cfg: cfg}
}

// requireDeviceUUID reads X-Device-UUID and writes a 400 when it is missing
// or malformed
func requireDeviceUUID(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.Header.Get("X-Device-UUID")
	if raw == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-Device-UUID header required")
		return "", false
	}
	deviceUUID, err := auth.NormalizeDeviceUUID(raw)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-Device-UUID must be a UUID")
		return "", false
	}
	return deviceUUID, true
}

// Register handles POST /devices/register
// Registers a device and returns its device_id (or finds existing)
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	deviceUUID, ok := requireDeviceUUID(w, r)
	if !ok {
		return
	}

	var req models.RegisterDeviceRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var existingID string
	err := h.db.QueryRow(`
		SELECT id FROM device WHERE device_uuid = $1
	`, deviceUUID).Scan(&existingID)

	if err == nil {
		_, err = h.db.Exec(`
			UPDATE device SET platform = $1, last_seen_at = $2 WHERE id = $3
		`, req.Platform, time.Now().UTC(), existingID)
		if err != nil {
			slog.Error("failed to update device", "error", err, "device_id", existingID)
		}

		slog.Info("device registered (existing)", "device_id", existingID)
		middleware.JSONResponse(w, http.StatusOK, models.RegisterDeviceResponse{
			DeviceID: existingID,
			IsNew:    false,
		})
		return
	}

	if err != sql.ErrNoRows {
		slog.Error("failed to query device", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	deviceID, err := createDevice(h.db, deviceUUID, req.Platform)
	if err != nil {
		slog.Error("failed to insert device", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register device")
		return
	}

	slog.Info("device registered (new)", "device_id", deviceID, "platform", req.Platform)

	middleware.JSONResponse(w, http.StatusCreated, models.RegisterDeviceResponse{
		DeviceID: deviceID,
		IsNew:    true,
	})
}

// GetMe handles GET /devices/me
func (h *DeviceHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	deviceUUID, ok := requireDeviceUUID(w, r)
	if !ok {
		return
	}

	var device models.DeviceInfo
	err := h.db.QueryRow(`
		SELECT id, platform, created_at, last_seen_at
		FROM device
		WHERE device_uuid = $1
	`, deviceUUID).Scan(&device.ID, &device.Platform, &device.CreatedAt, &device.LastSeenAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Device not registered")
		return
	}
	if err != nil {
		slog.Error("failed to query device", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	h.touch(device.ID)

	middleware.JSONResponse(w, http.StatusOK, device)
}

// GetMyElections handles GET /devices/my-elections
// Returns elections this device created or voted in
func (h *DeviceHandler) GetMyElections(w http.ResponseWriter, r *http.Request) {
	deviceUUID, ok := requireDeviceUUID(w, r)
	if !ok {
		return
	}

	var deviceID string
	err := h.db.QueryRow(`
		SELECT id FROM device WHERE device_uuid = $1
	`, deviceUUID).Scan(&deviceID)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Device not registered")
		return
	}
	if err != nil {
		slog.Error("failed to query device", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	h.touch(deviceID)

	rows, err := h.db.Query(`
		SELECT
			e.id,
			e.title,
			e.month,
			e.status,
			e.share_slug,
			de.role,
			uc.username,
			de.linked_at,
			(SELECT COUNT(*) FROM ballot b WHERE b.election_id = e.id) AS ballot_count
		FROM device_election de
		JOIN election e ON de.election_id = e.id
		LEFT JOIN username_claim uc
			ON uc.election_id = de.election_id AND uc.voter_token = de.voter_token
		WHERE de.device_id = $1
		ORDER BY de.linked_at DESC, e.id
	`, deviceID)

	if err != nil {
		slog.Error("failed to query device elections", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	elections := []models.DeviceElectionSummary{}
	for rows.Next() {
		var summary models.DeviceElectionSummary
		var username sql.NullString

		if err := rows.Scan(
			&summary.ElectionID,
			&summary.Title,
			&summary.Month,
			&summary.Status,
			&summary.ShareSlug,
			&summary.Role,
			&username,
			&summary.LinkedAt,
			&summary.BallotCount,
		); err != nil {
			slog.Error("failed to scan election", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if username.Valid {
			summary.Username = &username.String
		}

		elections = append(elections, summary)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read device elections", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.GetMyElectionsResponse{
		Elections: elections,
	})
}

func (h *DeviceHandler) touch(deviceID string) {
	_, err := h.db.Exec(`
		UPDATE device SET last_seen_at = $1 WHERE id = $2
	`, time.Now().UTC(), deviceID)
	if err != nil {
		slog.Error("failed to update device last_seen_at", "error", err, "device_id", deviceID)
	}
}

// GetOrCreateDevice looks up or creates a device record from the X-Device-UUID header.
// Returns an empty ID when the header is absent.
func GetOrCreateDevice(db *sql.DB, r *http.Request) (string, error) {
	raw := r.Header.Get("X-Device-UUID")
	if raw == "" {
		return "", nil
	}
	deviceUUID, err := auth.NormalizeDeviceUUID(raw)
	if err != nil {
		return "", err
	}

	var deviceID string
	err = db.QueryRow(`
		SELECT id FROM device WHERE device_uuid = $1
	`, deviceUUID).Scan(&deviceID)

	if err == nil {
		_, _ = db.Exec(`UPDATE device SET last_seen_at = $1 WHERE id = $2`, time.Now().UTC(), deviceID)
		return deviceID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	// platform is corrected later by /devices/register
	return createDevice(db, deviceUUID, models.PlatformWeb)
}

func createDevice(db *sql.DB, deviceUUID, platform string) (string, error) {
	deviceID, err := auth.GenerateID(16)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	_, err = db.Exec(`
		INSERT INTO device (id, device_uuid, platform, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5)
	`, deviceID, deviceUUID, platform, now, now)
	if err != nil {
		return "", err
	}

	return deviceID, nil
}

// LinkDeviceToElection associates a device with an election. An admin link
// is never downgraded to voter.
func LinkDeviceToElection(db *sql.DB, deviceID, electionID, role string, voterToken *string) error {
	if deviceID == "" {
		return nil
	}

	var vt sql.NullString
	if voterToken != nil {
		vt = sql.NullString{String: *voterToken, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO device_election (device_id, election_id, voter_token, role, linked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id, election_id) DO UPDATE SET
			role = CASE WHEN device_election.role = 'admin' THEN 'admin' ELSE EXCLUDED.role END,
			voter_token = COALESCE(device_election.voter_token, EXCLUDED.voter_token)
	`, deviceID, electionID, vt, role, time.Now().UTC())

	return err
}

// linkRequestDevice links the caller's device, if any. Failures are logged
// and never fail the request.
func linkRequestDevice(db *sql.DB, r *http.Request, electionID, role string, voterToken *string) {
	deviceID, err := GetOrCreateDevice(db, r)
	if err != nil {
		slog.Warn("failed to get/create device", "error", err)
		return
	}
	if err := LinkDeviceToElection(db, deviceID, electionID, role, voterToken); err != nil {
		slog.Warn("failed to link device to election", "error", err, "election_id", electionID)
	}
}
