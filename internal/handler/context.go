package handler

type ContextKey string

var (
	SubCtxKey   ContextKey = "sub"
	UserCtx     ContextKey = "user"
	IncidentCtx ContextKey = "incidentID"
)
