// Package homework polls the homework review API and relays status changes to Telegram.
package homework

import (
	"errors"
	"fmt"
)

// Verdicts maps a review status to the message sent for it.
var Verdicts = map[string]string{
	"approved":  "Работа проверена, ревьюеру всё понравилось. Ура!",
	"reviewing": "Работа взята на ревью.",
	"rejected":  "Работа проверена: у ревьюера есть замечания.",
}

var (
	ErrMissingHomeworks = errors.New("в ответе API нет ключа homeworks")
	ErrUnknownStatus    = errors.New("неизвестный статус работы")
	ErrMissingName      = errors.New("в ответе API нет имени работы")
)

// Homework is one entry of the status response.
type Homework struct {
	HomeworkName string `json:"homework_name"`
	Status       string `json:"status"`
}

// StatusResponse is the body of a homework status request. A nil Homeworks means the key was absent.
type StatusResponse struct {
	Homeworks   []Homework `json:"homeworks"`
	CurrentDate int64      `json:"current_date"`
}

// CheckResponse returns the homework list or ErrMissingHomeworks.
func CheckResponse(resp *StatusResponse) ([]Homework, error) {
	if resp == nil || resp.Homeworks == nil {
		return nil, ErrMissingHomeworks
	}
	return resp.Homeworks, nil
}

// ParseStatus formats the notification for hw.
func ParseStatus(hw Homework) (string, error) {
	if hw.HomeworkName == "" {
		return "", ErrMissingName
	}
	verdict, ok := Verdicts[hw.Status]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, hw.Status)
	}
	return fmt.Sprintf("Изменился статус проверки работы \"%s\". %s", hw.HomeworkName, verdict), nil
}
