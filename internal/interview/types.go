package interview

import "errors"

// User-facing step messages.
const (
	MsgInvalidStep   = "Passo inválido. Reinicie a entrevista."
	MsgFinished      = "Entrevista concluída. Obrigado!"
	MsgMisconfigured = "Fluxo mal configurado (próximo passo não encontrado)."
)

// Step outcomes reported to metrics and logs.
const (
	OutcomeStart         = "start"
	OutcomeQuestion      = "question"
	OutcomeEnd           = "end"
	OutcomeFinished      = "finished"
	OutcomeInvalidStep   = "invalid_step"
	OutcomeMisconfigured = "misconfigured"
)

var ErrMissingSessionID = errors.New("interview: missing session id")

// NextRequest carries the answer to the current node, if any.
type NextRequest struct {
	SessionID string  `json:"session_id" binding:"required"`
	CurrentID *string `json:"current_id"`
	Answer    *string `json:"answer"`
}

// NextResponse is the assistant's next message.
type NextResponse struct {
	Message string  `json:"message"`
	NextID  *string `json:"next_id"`
	Done    bool    `json:"done"`
}

// Answer is one recorded question/answer pair.
type Answer struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
