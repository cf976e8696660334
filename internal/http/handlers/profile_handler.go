// Profile HTTP handlers.
//
// This file exposes profile endpoints:
//   - GET  /profiles/me        (caller's own profile)
//   - PUT  /profiles/me        (create or update the caller's profile)
//   - GET  /profiles/nearby    (discovery by distance)
//   - GET  /profiles/search    (discovery by bio/interest text)
//   - GET  /profiles/{id}      (public view of another profile)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-match-backend/internal/services"
	"github.com/tbourn/go-match-backend/internal/utils"
)

// NearbyResponse wraps nearby discovery results.
type NearbyResponse struct {
	Profiles []services.NearbyProfile `json:"profiles"`
}

// SearchResponse wraps profile search results.
type SearchResponse struct {
	Query   string               `json:"query"`
	Results []services.SearchHit `json:"results"`
}

// GetMyProfile godoc
// @ID          getMyProfile
// @Summary     Get my profile
// @Tags        Profiles
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  domain.Profile
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not created yet"
// @Router      /profiles/me [get]
func (h *Handlers) GetMyProfile(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		serviceError(c, services.ErrNotAuthenticated, ErrCodeInternal)
		return
	}
	p, err := h.profileSvc.Get(c.Request.Context(), uid)
	if err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, p)
}

// PutMyProfile godoc
// @ID          putMyProfile
// @Summary     Create or update my profile
// @Description Validates and stores the caller's profile. Interests are case-folded and de-duplicated.
// @Tags        Profiles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body      services.ProfileInput  true  "Profile"
// @Success     200   {object}  domain.Profile
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid profile"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /profiles/me [put]
func (h *Handlers) PutMyProfile(c *gin.Context) {
	var in services.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "display_name and age required")
		return
	}
	p, err := h.profileSvc.Upsert(c.Request.Context(), userID(c), in)
	if err != nil {
		serviceError(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusOK, p)
}

// GetProfile godoc
// @ID          getProfile
// @Summary     Get a profile
// @Tags        Profiles
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "User ID"
// @Success     200  {object}  domain.Profile
// @Failure     404  {object}  handlers.ErrorResponse  "Profile not found"
// @Router      /profiles/{id} [get]
func (h *Handlers) GetProfile(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "profile id required")
		return
	}
	p, err := h.profileSvc.Get(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, p)
}

// NearbyProfiles godoc
// @ID          nearbyProfiles
// @Summary     Discover nearby profiles
// @Description Lists recently active profiles within radius_km, nearest first. Profiles the caller
// @Description already liked or matched are excluded. lat/lng default to the caller's stored location.
// @Tags        Profiles
// @Produce     json
// @Security    BearerAuth
// @Param       lat        query     number  false  "Latitude"
// @Param       lng        query     number  false  "Longitude"
// @Param       radius_km  query     number  false  "Search radius in km"  default(10)
// @Param       age_min    query     int     false  "Minimum age"          default(18)
// @Param       age_max    query     int     false  "Maximum age"          default(100)
// @Param       gender     query     string  false  "Gender filter"
// @Param       limit      query     int     false  "Max results"          default(50)
// @Success     200        {object}  handlers.NearbyResponse
// @Failure     400        {object}  handlers.ErrorResponse  "Invalid location"
// @Failure     401        {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /profiles/nearby [get]
func (h *Handlers) NearbyProfiles(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	if uid == "" {
		serviceError(c, services.ErrNotAuthenticated, ErrCodeInternal)
		return
	}

	lat, hasLat, errLat := utils.ParseFloat(c.Query("lat"))
	lng, hasLng, errLng := utils.ParseFloat(c.Query("lng"))
	if errLat != nil || errLng != nil || hasLat != hasLng {
		fail(c, http.StatusBadRequest, ErrCodeInvalidLocation, "lat and lng must both be valid numbers")
		return
	}
	if !hasLat {
		me, err := h.profileSvc.Get(ctx, uid)
		if err != nil && !errors.Is(err, services.ErrProfileNotFound) {
			serviceError(c, err, ErrCodeListFailed)
			return
		}
		if me == nil || me.Lat == nil || me.Lng == nil {
			fail(c, http.StatusBadRequest, ErrCodeInvalidLocation, "lat and lng required when the profile has no location")
			return
		}
		lat, lng = *me.Lat, *me.Lng
	}

	radius, _, err := utils.ParseFloat(c.Query("radius_km"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidLocation, "radius_km must be a number")
		return
	}

	out, err := h.profileSvc.Nearby(ctx, uid, services.NearbyQuery{
		Lat:      lat,
		Lng:      lng,
		RadiusKm: radius,
		AgeMin:   utils.AtoiDefault(c.Query("age_min"), 0),
		AgeMax:   utils.AtoiDefault(c.Query("age_max"), 0),
		Gender:   c.Query("gender"),
		Limit:    utils.AtoiDefault(c.Query("limit"), 0),
	})
	if err != nil {
		serviceError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, NearbyResponse{Profiles: out})
}

// SearchProfiles godoc
// @ID          searchProfiles
// @Summary     Search profiles by text
// @Description Ranks discoverable profiles by token overlap with their bio and interests.
// @Tags        Profiles
// @Produce     json
// @Security    BearerAuth
// @Param       q    query     string  true   "Query text"
// @Param       k    query     int     false  "Max results"  default(10) maximum(50)
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing query"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /profiles/search [get]
func (h *Handlers) SearchProfiles(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q required")
		return
	}
	k := utils.AtoiDefault(c.Query("k"), services.DefaultSearchK)
	hits, err := h.profileSvc.Search(c.Request.Context(), userID(c), q, k)
	if err != nil {
		serviceError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, SearchResponse{Query: q, Results: hits})
}
