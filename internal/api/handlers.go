package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"roombook/internal/domain"
	"roombook/internal/export"
	"roombook/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type createBookingRequest struct {
	RoomID          int64  `json:"room_id"`
	ResponsibleName string `json:"responsible_name"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
}

func (req createBookingRequest) input() (models.CreateBookingInput, error) {
	in := models.CreateBookingInput{RoomID: req.RoomID, ResponsibleName: req.ResponsibleName}

	var err error
	if in.StartTime, err = parseTimeField("start_time", req.StartTime); err != nil {
		return in, err
	}
	if in.EndTime, err = parseTimeField("end_time", req.EndTime); err != nil {
		return in, err
	}
	return in, nil
}

type updateBookingRequest struct {
	ResponsibleName *string `json:"responsible_name"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	Status          *string `json:"status"`
}

func (req updateBookingRequest) patch() (models.BookingPatch, error) {
	patch := models.BookingPatch{ResponsibleName: req.ResponsibleName}

	if req.StartTime != nil {
		t, err := parsePatchTime("start_time", *req.StartTime)
		if err != nil {
			return patch, err
		}
		patch.StartTime = &t
	}
	if req.EndTime != nil {
		t, err := parsePatchTime("end_time", *req.EndTime)
		if err != nil {
			return patch, err
		}
		patch.EndTime = &t
	}
	if req.Status != nil {
		st := models.Status(*req.Status)
		patch.Status = &st
	}
	return patch, nil
}

// parseTimeField parses a boundary time value. An empty value yields the zero time,
// which the service reports as a missing field.
func parseTimeField(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := models.ParseTime(raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "must be a valid date in %s format", models.TimeLayout)
	}
	return t, nil
}

func parsePatchTime(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, domain.NewValidationError(field, "must not be empty")
	}
	return parseTimeField(field, raw)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", name, r.PathValue(name), domain.ErrNotFound)
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return domain.NewValidationError("body", "must be a valid JSON object")
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	requesterID, err := s.auth.requesterFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rooms, err := s.svc.ListRooms(r.Context(), requesterID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rooms)
}

func (s *HTTPServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	requesterID, err := s.auth.requesterFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	roomID, err := pathID(r, "room")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	room, err := s.svc.GetRoom(r.Context(), roomID, requesterID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, room)
}

func (s *HTTPServer) handleExportRoom(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.requesterFromRequest(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	roomID, err := pathID(r, "room")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	schedule, err := s.svc.RoomSchedule(r.Context(), roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.clock.Now()
	var buf bytes.Buffer
	if err := export.WriteRoomSchedule(&buf, schedule, now); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(schedule.Room, now)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	requesterID, err := s.auth.requesterFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	bookings, err := s.svc.ListUserBookings(r.Context(), requesterID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, bookings)
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	requesterID, err := s.auth.requesterFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req createBookingRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	input, err := req.input()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.svc.CreateBooking(r.Context(), requesterID, input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, view)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	requesterID, err := s.auth.requesterFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bookingID, err := pathID(r, "booking")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.svc.GetBooking(r.Context(), bookingID, requesterID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	requesterID, err := s.auth.requesterFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bookingID, err := pathID(r, "booking")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req updateBookingRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.svc.UpdateBooking(r.Context(), bookingID, requesterID, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, view)
}
