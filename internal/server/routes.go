package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/eleven-am/hlsladder/internal/domain"
)

type MasterInput struct {
	VideoID string `path:"videoId" maxLength:"256" doc:"Video identifier"`
}

type PlaylistOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

type HealthData struct {
	Status string `json:"status" example:"ok" doc:"Service status"`
}

type HealthResponse struct {
	Body HealthData
}

func (s *Server) registerRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Tags:        []string{"health"},
	}, func(ctx context.Context, input *struct{}) (*HealthResponse, error) {
		return &HealthResponse{Body: HealthData{Status: "ok"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-master-manifest",
		Method:      http.MethodGet,
		Path:        s.basePath + "/{videoId}/master.m3u8",
		Summary:     "Master manifest",
		Description: "Stored master manifest with URIs rewritten for this request and duplicates removed",
		Tags:        []string{"manifests"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *MasterInput) (*PlaylistOutput, error) {
		body, err := s.manifests.Master(ctx, input.VideoID, s.requestBase(input.VideoID))
		if err != nil {
			return nil, s.manifestError(input.VideoID, err)
		}
		return &PlaylistOutput{
			ContentType:  playlistContentType,
			CacheControl: "no-cache",
			Body:         []byte(body),
		}, nil
	})
}

func (s *Server) requestBase(videoID string) string {
	return s.basePath + "/" + videoID
}

func (s *Server) manifestError(videoID string, err error) error {
	if errors.Is(err, domain.ErrManifestNotFound) {
		return huma.Error404NotFound("manifest not found")
	}
	s.logger.Error("failed to serve manifest", "video_id", videoID, "error", err)
	return huma.Error500InternalServerError("failed to serve manifest")
}
