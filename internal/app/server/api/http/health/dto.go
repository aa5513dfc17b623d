package health

import "time"

type Input struct{}

type Output struct {
	Body Response
}

type Response struct {
	Status     string    `json:"status" example:"OK" doc:"Health status of the service"`
	ServerTime time.Time `json:"serverTime" doc:"Current server time, UTC"`
}
