package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/i474232898/forecast-enhancer/internal/forecast"
	"github.com/i474232898/forecast-enhancer/internal/orchestrator"
	"github.com/i474232898/forecast-enhancer/internal/weather"
)

var validate = validator.New()

// Orchestrator is the orchestrator type served over HTTP.
type Orchestrator = orchestrator.Orchestrator[*forecast.Client]

type handler struct {
	orch *Orchestrator
	// base is the configured client setup every query builds on.
	base func(*forecast.Client)
	log  zerolog.Logger
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, orch *Orchestrator, base func(*forecast.Client), log zerolog.Logger) {
	h := &handler{orch: orch, base: base, log: log.With().Str("component", "http").Logger()}

	v1 := app.Group("/api/v1")
	v1.Get("/forecast", h.getForecast)
	v1.Put("/forecast/query", h.putQuery)
}

// rendered is the outcome of projecting the orchestrator state.
type rendered struct {
	status int
	body   fiber.Map
}

func (h *handler) view() orchestrator.View[*forecast.Client, rendered] {
	return orchestrator.View[*forecast.Client, rendered]{
		Loading: func() rendered {
			return rendered{fiber.StatusAccepted, fiber.Map{"state": "loading"}}
		},
		Error: func(info orchestrator.ErrorInfo) rendered {
			return rendered{fiber.StatusBadGateway, fiber.Map{
				"state": "error",
				"error": errorPayload(info),
			}}
		},
		Ready: func(results *weather.ResultSet, client *forecast.Client) rendered {
			return rendered{fiber.StatusOK, fiber.Map{
				"state":    "ready",
				"location": client.Location(),
				"dates":    client.Dates(),
				"data":     withIcons(results, client),
			}}
		},
	}
}

func (h *handler) getForecast(c *fiber.Ctx) error {
	out, ok := orchestrator.Render(h.orch, h.view())
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(out.status).JSON(out.body)
}

// queryRequest is the body of PUT /forecast/query. Omitted values fall back
// to the configured defaults.
type queryRequest struct {
	Fields   []string          `json:"fields" validate:"required,min=1,dive,required"`
	By       string            `json:"by" validate:"omitempty,oneof=day hour"`
	From     string            `json:"from" validate:"required_with=To"`
	To       string            `json:"to" validate:"required_with=From"`
	Location *weather.Location `json:"location" validate:"-"`
	Units    string            `json:"units" validate:"omitempty,oneof=standard metric imperial"`
	Lang     string            `json:"lang" validate:"omitempty,min=2,max=5"`
}

func (q queryRequest) props(base func(*forecast.Client)) (orchestrator.Props[*forecast.Client], error) {
	var from, to time.Time
	if q.From != "" {
		var err error
		if from, err = parseTime(q.From); err != nil {
			return orchestrator.Props[*forecast.Client]{}, err
		}
		if to, err = parseTime(q.To); err != nil {
			return orchestrator.Props[*forecast.Client]{}, err
		}
		if to.Before(from) {
			return orchestrator.Props[*forecast.Client]{}, errors.New("to must not be before from")
		}
	}

	fields := make([]weather.Field, len(q.Fields))
	for i, f := range q.Fields {
		fields[i] = weather.Field(f)
	}

	return orchestrator.Props[*forecast.Client]{
		Fields:      fields,
		Granularity: weather.Granularity(q.By),
		Setup: func(c *forecast.Client) {
			if base != nil {
				base(c)
			}
			if !from.IsZero() {
				c.At(from, to)
			}
			if q.Location != nil {
				c.Locate(*q.Location)
			}
			if q.Units != "" {
				c.Units(weather.Unit(q.Units))
			}
			if q.Lang != "" {
				c.Language(q.Lang)
			}
		},
	}, nil
}

func (h *handler) putQuery(c *fiber.Ctx) error {
	var req queryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	props, err := req.props(h.base)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	refetched, err := h.orch.Reconfigure(c.UserContext(), props)
	if err != nil {
		if errors.Is(err, forecast.ErrUnknownField) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		h.log.Error().Err(err).Msg("reconfigure failed")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to apply query")
	}

	s := h.orch.Snapshot()
	state := fiber.Map{"phase": s.Phase.String(), "geoLoading": s.GeoLoading}
	if s.Error != nil {
		state["error"] = errorPayload(*s.Error)
	}
	return c.JSON(fiber.Map{"refetched": refetched, "state": state})
}

// reportView is a condition report with its icon resolved to a URL.
type reportView struct {
	weather.Report
	IconURL string `json:"iconUrl,omitempty"`
}

// withIcons returns the results with every report carrying an icon URL.
// Field order is preserved.
func withIcons(results *weather.ResultSet, client *forecast.Client) *weather.ResultSet {
	out := weather.NewResultSet(results.Len())
	for _, f := range results.Fields() {
		v, _ := results.Get(f)
		if reports, ok := v.([]weather.Report); ok {
			views := make([]reportView, len(reports))
			for i, r := range reports {
				views[i] = reportView{Report: r, IconURL: client.Icon(r.Icon)}
			}
			v = views
		}
		out.Set(f, v)
	}
	return out
}

func errorPayload(info orchestrator.ErrorInfo) any {
	if err, ok := info.Payload.(error); ok {
		return err.Error()
	}
	return info.Payload
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
