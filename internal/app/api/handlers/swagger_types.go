package handlers

import (
	"github.com/fatflowers/packledger/internal/app/service/assignment"
	"github.com/fatflowers/packledger/internal/app/service/checkin"
	"github.com/fatflowers/packledger/internal/app/service/statistics"
	models "github.com/fatflowers/packledger/internal/models"
	"github.com/fatflowers/packledger/pkg/response"
	types "github.com/fatflowers/packledger/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespHealth struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    map[string]string        `json:"data"`
}

type RespAssignment struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    models.PackAssignment    `json:"data"`
}

type RespListAssignments struct {
	Code    response.APIResponseCode           `json:"code"`
	Message string                             `json:"message"`
	Data    assignment.ListAssignmentsResponse `json:"data"`
}

// RespRecordCheckIn also documents the ineligible case, where data is an IneligibleData.
type RespRecordCheckIn struct {
	Code    response.APIResponseCode    `json:"code"`
	Message string                      `json:"message"`
	Data    checkin.RecordCheckInResult `json:"data"`
}

type RespListCheckIns struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    checkin.ListCheckInsResponse `json:"data"`
}

type RespVoidCheckIn struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    checkin.VoidCheckInResult `json:"data"`
}

type RespListPackTemplates struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []types.PackTemplate     `json:"data"`
}

// RespStatistic wraps StatisticResponse in the standard envelope.
type RespStatistic struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    statistics.StatisticResponse `json:"data"`
}
