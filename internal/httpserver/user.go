package httpserver

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	mwauth "github.com/Skotchmaster/user_management/internal/middleware/auth"
	"github.com/Skotchmaster/user_management/internal/models"
	"github.com/Skotchmaster/user_management/internal/service"
	"github.com/Skotchmaster/user_management/pkg/logging"
)

const defaultMaxPictureBytes = 5 << 20

type UserHTTP struct {
	Svc             *service.UserService
	MaxPictureBytes int64
}

type profileResponse struct {
	ID                uint      `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Provider          string    `json:"provider"`
	Roles             []string  `json:"roles"`
	ProfilePictureURL *string   `json:"profile_picture_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func newProfileResponse(a *models.Account) profileResponse {
	return profileResponse{
		ID:                a.ID,
		Username:          a.Username,
		Email:             a.Email,
		Provider:          string(a.Provider),
		Roles:             a.RoleNames(),
		ProfilePictureURL: a.ProfilePicture,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

type updateUserRequest struct {
	Username string `json:"username" validate:"required"`
}

func (h *UserHTTP) Me(c echo.Context) error {
	id, ok := mwauth.AccountID(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	account, err := h.Svc.Profile(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newProfileResponse(account))
}

func (h *UserHTTP) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_update")

	id, ok := mwauth.AccountID(c)
	if !ok {
		return echo.ErrUnauthorized
	}

	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("update_error", "status", http.StatusBadRequest, "error", err)
		return toHTTPError(err)
	}

	account, err := h.Svc.UpdateUsername(ctx, id, req.Username)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newProfileResponse(account))
}

func (h *UserHTTP) UploadPicture(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_picture_upload")

	id, ok := mwauth.AccountID(c)
	if !ok {
		return echo.ErrUnauthorized
	}

	up, err := h.readPicture(c)
	if err != nil {
		l.Warn("upload_error", "status", statusFor(err), "error", err)
		return toHTTPError(err)
	}

	account, err := h.Svc.UpdateProfilePicture(ctx, id, up)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newProfileResponse(account))
}

func (h *UserHTTP) DeletePicture(c echo.Context) error {
	id, ok := mwauth.AccountID(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	account, err := h.Svc.DeleteProfilePicture(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newProfileResponse(account))
}

func (h *UserHTTP) readPicture(c echo.Context) (service.PictureUpload, error) {
	limit := h.MaxPictureBytes
	if limit <= 0 {
		limit = defaultMaxPictureBytes
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return service.PictureUpload{}, fmt.Errorf("%w: multipart field \"file\" is required", service.ErrValidation)
	}
	if fh.Size > limit {
		return service.PictureUpload{}, fmt.Errorf("%w: file exceeds %d bytes", service.ErrValidation, limit)
	}

	f, err := fh.Open()
	if err != nil {
		return service.PictureUpload{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return service.PictureUpload{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return service.PictureUpload{}, fmt.Errorf("%w: file exceeds %d bytes", service.ErrValidation, limit)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return service.PictureUpload{}, fmt.Errorf("%w: file is not an image", service.ErrValidation)
	}

	return service.PictureUpload{
		Filename:    fh.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
