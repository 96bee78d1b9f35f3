package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/section"
)

type sectionApi struct {
	svc *section.Service
}

func registerSectionAPI(g *echo.Group, svc *section.Service) {
	api := sectionApi{svc: svc}

	cg := g.Group("/courses/:id/sections")
	cg.POST("", api.provision)
	cg.POST("/assignments", api.assign)

	sg := g.Group("/sections")
	sg.GET("", api.query)
	sg.GET("/:id/capacity", api.capacity)
	sg.POST("/:id/count-sync", api.syncCount)
	sg.PATCH("/:id/status", api.updateStatus)
}

// Handlers

func (api *sectionApi) provision(ctx echo.Context) error {
	var data section.NewSections
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSections")
	}
	data.CourseID = ctx.Param("id")
	if err := data.Validate(); err != nil {
		return err
	}

	secs, err := api.svc.CreateSections(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "provisioning sections")
	}

	return ctx.JSON(http.StatusCreated, secs)
}

func (api *sectionApi) assign(ctx echo.Context) error {
	var data section.AssignStudents
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignStudents")
	}
	data.CourseID = ctx.Param("id")
	if err := data.Validate(); err != nil {
		return err
	}

	secs, err := api.svc.Assign(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "assigning students")
	}

	return ctx.JSON(http.StatusOK, secs)
}

func (api *sectionApi) query(ctx echo.Context) error {
	var filter section.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	var ord Ordering
	ord.Bind(ctx)

	secs, err := api.svc.Query(ctx.Request().Context(), filter, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}

	return ctx.JSON(http.StatusOK, secs)
}

type capacityResponse struct {
	SectionID              string `json:"section_id"`
	Name                   string `json:"name"`
	Capacity               int    `json:"capacity"`
	CurrentEnrollmentCount int    `json:"current_enrollment_count"`
	HasCapacity            bool   `json:"has_capacity"`
}

func (api *sectionApi) capacity(ctx echo.Context) error {
	id := ctx.Param("id")

	sec, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting section")
	}
	hasRoom, err := api.svc.HasCapacity(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "checking section capacity")
	}

	return ctx.JSON(http.StatusOK, capacityResponse{
		SectionID:              sec.ID,
		Name:                   sec.Name,
		Capacity:               sec.Capacity,
		CurrentEnrollmentCount: sec.CurrentEnrollmentCount,
		HasCapacity:            hasRoom,
	})
}

func (api *sectionApi) syncCount(ctx echo.Context) error {
	sec, err := api.svc.SyncCount(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "syncing section count")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *sectionApi) updateStatus(ctx echo.Context) error {
	var data section.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	sec, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "updating section status")
	}
	return ctx.JSON(http.StatusOK, sec)
}
