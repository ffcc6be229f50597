package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"doemais/models"

	"go.uber.org/zap"
)

// ipLookup is the subset of the ipapi.co response we read.
type ipLookup struct {
	IP        string  `json:"ip"`
	City      string  `json:"city"`
	Country   string  `json:"country_name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Error     bool    `json:"error"`
	Reason    string  `json:"reason"`
}

// IPLocator places a client by its public IP address using ipapi.co. Positions
// are cached by the Provider, which honors the max age.
type IPLocator struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewIPLocator(baseURL string, logger *zap.Logger) *IPLocator {
	if baseURL == "" {
		baseURL = "https://ipapi.co"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IPLocator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger,
	}
}

var privateBlocks = []*net.IPNet{
	{IP: net.IPv4(10, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(172, 16, 0, 0), Mask: net.CIDRMask(12, 32)},
	{IP: net.IPv4(192, 168, 0, 0), Mask: net.CIDRMask(16, 32)},
}

// isPrivateIP reports whether ip cannot be located publicly.
func isPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	if parsed.IsLoopback() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return true
	}
	for _, block := range privateBlocks {
		if block.Contains(parsed) {
			return true
		}
	}
	return false
}

func (l *IPLocator) Locate(ctx context.Context, ip string) (models.Coordinate, error) {
	if isPrivateIP(ip) {
		l.logger.Debug("Client IP is private; no position", zap.String("ip", ip))
		return models.Coordinate{}, &PositionError{Code: CodePositionUnavailable}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/json/", l.baseURL, ip), nil)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("build lookup request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return models.Coordinate{}, ctx.Err()
		}
		l.logger.Error("Failed to query geolocation API", zap.String("ip", ip), zap.Error(err))
		return models.Coordinate{}, &PositionError{Code: CodePositionUnavailable}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Error("Geolocation API returned non-OK status", zap.String("ip", ip), zap.Int("status", resp.StatusCode))
		return models.Coordinate{}, &PositionError{Code: CodePositionUnavailable}
	}

	var body ipLookup
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		l.logger.Error("Failed to decode geolocation response", zap.String("ip", ip), zap.Error(err))
		return models.Coordinate{}, &PositionError{Code: CodePositionUnavailable}
	}
	if body.Error || (body.Latitude == 0 && body.Longitude == 0) {
		l.logger.Warn("Geolocation API has no position", zap.String("ip", ip), zap.String("reason", body.Reason))
		return models.Coordinate{}, &PositionError{Code: CodePositionUnavailable}
	}

	return models.Coordinate{Lat: body.Latitude, Lng: body.Longitude}, nil
}

// StaticLocator always answers with the same position or failure.
type StaticLocator struct {
	Coordinate models.Coordinate
	Err        error
}

func (s StaticLocator) Locate(ctx context.Context, _ string) (models.Coordinate, error) {
	if s.Err != nil {
		return models.Coordinate{}, s.Err
	}
	return s.Coordinate, nil
}

// Report is a position result gathered on the client device.
type Report struct {
	Coordinates *models.Coordinate `json:"coordinates"`
	// Code is the platform error code (1 denied, 2 unavailable, 3 timeout)
	// when Coordinates is absent.
	Code int `json:"code"`
}

// FromReport turns a client report into a Locator.
func FromReport(r Report) Locator {
	if r.Coordinates != nil {
		return StaticLocator{Coordinate: *r.Coordinates}
	}
	return StaticLocator{Err: &PositionError{Code: ErrorCode(r.Code)}}
}

// State converts the report into a settled location state.
func (r Report) State(now time.Time) models.LocationState {
	if r.Coordinates != nil {
		if !r.Coordinates.Valid() {
			return models.LocationState{Error: MsgPositionUnavailable, ResolvedAt: &now}
		}
		c := *r.Coordinates
		return models.LocationState{Coordinates: &c, ResolvedAt: &now}
	}
	return models.LocationState{Error: errorMessage(&PositionError{Code: ErrorCode(r.Code)}), ResolvedAt: &now}
}
