package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"kanban/internal/errors"
	"kanban/internal/service"
)

// BoardHandler handles board endpoints.
type BoardHandler struct {
	boardService service.BoardService
}

// NewBoardHandler creates a new board handler.
func NewBoardHandler(boardService service.BoardService) *BoardHandler {
	return &BoardHandler{boardService: boardService}
}

// CreateBoardRequest represents a board creation request.
type CreateBoardRequest struct {
	Title   string `json:"title" validate:"required,max=255"`
	Members []uint `json:"members"`
}

// UpdateBoardRequest represents a partial board update. Members, when
// present, replaces the whole member set.
type UpdateBoardRequest struct {
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Members *[]uint `json:"members"`
}

// hideDenied reports a refused read or update as a missing board so that
// boards the caller cannot see are not revealed.
func hideDenied(err error) error {
	if errors.IsForbidden(err) || errors.Is(err, errors.ErrBoardNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, errors.ErrorResponse{
			Error: "board not found or access denied",
			Code:  "BOARD_NOT_FOUND",
		})
	}
	return respond(err)
}

// ListBoards godoc
// @Summary List boards the caller owns or belongs to
// @Tags boards
// @Produce json
// @Security BearerAuth
// @Success 200 {array} BoardSummary
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /boards [get]
func (h *BoardHandler) ListBoards(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}

	boards, err := h.boardService.List(c.Request().Context(), userID)
	if err != nil {
		return respond(err)
	}

	out := make([]BoardSummary, 0, len(boards))
	for i := range boards {
		out = append(out, boardSummary(&boards[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// CreateBoard godoc
// @Summary Create a board
// @Description The caller becomes owner and is always a member.
// @Tags boards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBoardRequest true "Board data"
// @Success 201 {object} BoardSummary
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /boards [post]
func (h *BoardHandler) CreateBoard(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	var req CreateBoardRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	board, err := h.boardService.Create(c.Request().Context(), userID, req.Title, req.Members)
	if err != nil {
		return respond(err)
	}
	return c.JSON(http.StatusCreated, boardSummary(board))
}

// GetBoard godoc
// @Summary Get a board with its members and tasks
// @Tags boards
// @Produce json
// @Security BearerAuth
// @Param id path int true "Board ID"
// @Success 200 {object} BoardDetail
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /boards/{id} [get]
func (h *BoardHandler) GetBoard(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	boardID, err := pathID(c, "id", errors.ErrBoardNotFound)
	if err != nil {
		return err
	}

	board, err := h.boardService.Get(c.Request().Context(), userID, boardID)
	if err != nil {
		return hideDenied(err)
	}
	return c.JSON(http.StatusOK, BoardDetail{
		ID:      board.ID,
		Title:   board.Title,
		OwnerID: board.OwnerID,
		Members: userInfos(board.Members),
		Tasks:   taskResponses(board.Tasks),
	})
}

// UpdateBoard godoc
// @Summary Update a board title or replace its members
// @Tags boards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Board ID"
// @Param request body UpdateBoardRequest true "Fields to change"
// @Success 200 {object} BoardPatchResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /boards/{id} [patch]
func (h *BoardHandler) UpdateBoard(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	boardID, err := pathID(c, "id", errors.ErrBoardNotFound)
	if err != nil {
		return err
	}
	var req UpdateBoardRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	board, err := h.boardService.Update(c.Request().Context(), userID, boardID, service.BoardUpdate{
		Title:   req.Title,
		Members: req.Members,
	})
	if err != nil {
		return hideDenied(err)
	}
	return c.JSON(http.StatusOK, BoardPatchResponse{
		ID:          board.ID,
		Title:       board.Title,
		OwnerData:   userInfo(board.Owner),
		MembersData: userInfos(board.Members),
	})
}

// DeleteBoard godoc
// @Summary Delete a board with its tasks and comments
// @Tags boards
// @Security BearerAuth
// @Param id path int true "Board ID"
// @Success 204
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /boards/{id} [delete]
func (h *BoardHandler) DeleteBoard(c echo.Context) error {
	userID, err := actor(c)
	if err != nil {
		return err
	}
	boardID, err := pathID(c, "id", errors.ErrBoardNotFound)
	if err != nil {
		return err
	}

	if err := h.boardService.Delete(c.Request().Context(), userID, boardID); err != nil {
		return respond(err)
	}
	return c.NoContent(http.StatusNoContent)
}
