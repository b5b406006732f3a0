package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/ByLCY/thumbsmith/ai"
	"github.com/ByLCY/thumbsmith/geometry"
	"github.com/ByLCY/thumbsmith/interaction"
	"github.com/ByLCY/thumbsmith/preset"
	"github.com/ByLCY/thumbsmith/renderer"
	"github.com/ByLCY/thumbsmith/scene"
	"github.com/ByLCY/thumbsmith/studio"
)

type pointerRequest struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	ElementID string  `json:"elementId"`
	Handle    string  `json:"handle"`
}

type activeRequest struct {
	ID string `json:"id"`
}

type viewportRequest struct {
	Width int `json:"width"`
}

type presetRequest struct {
	Source string `json:"source"`
	Data   any    `json:"data"`
}

type variationsRequest struct {
	Headline string `json:"headline"`
}

type promptRequest struct {
	Headline string   `json:"headline"`
	Style    string   `json:"style"`
	Images   []string `json:"images"`
}

type imageRequest struct {
	Prompt      string   `json:"prompt"`
	AspectRatio string   `json:"aspectRatio"`
	Images      []string `json:"images"`
	Preset      string   `json:"preset"`
	Data        any      `json:"data"`
}

// decodeBody 解析 JSON 请求体；optional 为 true 时允许空请求体。
func decodeBody(c fiber.Ctx, v any, optional bool) error {
	body := c.Body()
	if len(body) == 0 {
		if optional {
			return nil
		}
		return badRequest{msg: "请求体不能为空"}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest{msg: fmt.Sprintf("无效的 JSON: %v", err)}
	}
	return nil
}

// decodeImages 接受纯 base64 或 data URL。
func decodeImages(items []string) ([]ai.Image, error) {
	out := make([]ai.Image, 0, len(items))
	for i, item := range items {
		var mime string
		payload := strings.TrimSpace(item)
		if strings.HasPrefix(payload, "data:") {
			head, data, ok := strings.Cut(payload, ",")
			if !ok {
				return nil, badRequest{msg: fmt.Sprintf("第 %d 张图片的 data URL 无效", i)}
			}
			mime = strings.TrimSuffix(strings.TrimPrefix(head, "data:"), ";base64")
			payload = data
		}
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, badRequest{msg: fmt.Sprintf("第 %d 张图片不是有效的 base64: %v", i, err)}
		}
		out = append(out, ai.Image{Data: raw, MIMEType: mime})
	}
	return out, nil
}

// ============================================================
// Scene Handlers
// ============================================================

func (s *Server) getScene(c fiber.Ctx) error {
	return c.JSON(s.session.Snapshot())
}

func (s *Server) getState(c fiber.Ctx) error {
	return c.JSON(s.session.State())
}

func (s *Server) addElement(c fiber.Ctx) error {
	var patch scene.Patch
	if err := decodeBody(c, &patch, true); err != nil {
		return s.fail(c, err)
	}
	id := s.session.AddElement(patch)
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id})
}

func (s *Server) updateActive(c fiber.Ctx) error {
	var patch scene.Patch
	if err := decodeBody(c, &patch, false); err != nil {
		return s.fail(c, err)
	}
	if patch.IsEmpty() {
		return s.fail(c, badRequest{msg: "补丁中没有可更新的字段"})
	}
	updated := s.session.UpdateActive(patch)
	return c.JSON(fiber.Map{"updated": updated, "scene": s.session.Snapshot()})
}

func (s *Server) removeActive(c fiber.Ctx) error {
	removed := s.session.RemoveActive()
	return c.JSON(fiber.Map{"removed": removed})
}

func (s *Server) setActive(c fiber.Ctx) error {
	var req activeRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.fail(c, err)
	}
	if !s.session.SetActive(req.ID) {
		return s.fail(c, interaction.ErrUnknownElement)
	}
	return c.JSON(fiber.Map{"activeId": req.ID})
}

func (s *Server) setViewport(c fiber.Ctx) error {
	var req viewportRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.fail(c, err)
	}
	if err := s.session.SetDisplayWidth(req.Width); err != nil {
		return s.fail(c, badRequest{msg: err.Error()})
	}
	return c.JSON(s.session.State())
}

func (s *Server) setBaseImage(c fiber.Ctx) error {
	if err := s.session.SetBaseImage(c.Body()); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.session.State())
}

func (s *Server) applyPreset(c fiber.Ctx) error {
	var req presetRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.fail(c, err)
	}
	p, err := preset.LoadString(req.Source)
	if err != nil {
		return s.fail(c, badRequest{msg: err.Error()})
	}
	if err := s.session.ApplyPreset(p, req.Data); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.session.Snapshot())
}

// ============================================================
// Pointer Handlers
// ============================================================

func (s *Server) pointerDown(c fiber.Ctx) error {
	var req pointerRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.fail(c, err)
	}
	id, err := s.session.PointerDown(geometry.Point{X: req.X, Y: req.Y}, req.ElementID, req.Handle)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"elementId": id, "interaction": s.session.State().Interaction})
}

func (s *Server) pointerMove(c fiber.Ctx) error {
	var req pointerRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.fail(c, err)
	}
	changed := s.session.PointerMove(geometry.Point{X: req.X, Y: req.Y})
	return c.JSON(fiber.Map{"changed": changed})
}

func (s *Server) pointerUp(c fiber.Ctx) error {
	s.session.PointerUp()
	return c.JSON(s.session.Snapshot())
}

// ============================================================
// AI Handlers
// ============================================================

func (s *Server) variations(c fiber.Ctx) error {
	var req variationsRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.fail(c, err)
	}
	if strings.TrimSpace(req.Headline) == "" {
		return s.fail(c, badRequest{msg: "headline 不能为空"})
	}
	list, err := s.session.GenerateVariations(c.Context(), req.Headline)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"variations": list})
}

func (s *Server) prompt(c fiber.Ctx) error {
	var req promptRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.fail(c, err)
	}
	images, err := decodeImages(req.Images)
	if err != nil {
		return s.fail(c, err)
	}
	p, err := s.session.GeneratePrompt(c.Context(), req.Headline, req.Style, images)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(p)
}

func (s *Server) image(c fiber.Ctx) error {
	var req imageRequest
	if err := decodeBody(c, &req, false); err != nil {
		return s.fail(c, err)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return s.fail(c, badRequest{msg: "prompt 不能为空"})
	}
	images, err := decodeImages(req.Images)
	if err != nil {
		return s.fail(c, err)
	}
	ir := studio.ImageRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Images:      images,
		Data:        req.Data,
	}
	if req.Preset != "" {
		if ir.Preset, err = preset.LoadString(req.Preset); err != nil {
			return s.fail(c, badRequest{msg: err.Error()})
		}
	}
	if err := s.session.GenerateImage(c.Context(), ir); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.session.State())
}

func (s *Server) restart(c fiber.Ctx) error {
	s.session.Restart()
	return c.JSON(s.session.State())
}

// ============================================================
// Output Handlers
// ============================================================

func (s *Server) preview(c fiber.Ctx) error {
	out, err := s.session.Preview()
	if err != nil {
		return s.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(out)
}

func (s *Server) export(c fiber.Ctx) error {
	out, err := s.session.Export()
	if err != nil {
		return s.fail(c, err)
	}
	c.Attachment(renderer.ExportFileName)
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(out)
}
