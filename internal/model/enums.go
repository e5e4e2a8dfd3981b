package model

type SessionStatus string

const (
	SessionStatusWaitingQR SessionStatus = "waiting_qr"
	SessionStatusQRReady   SessionStatus = "qr_ready"
	SessionStatusPaired    SessionStatus = "paired"
	SessionStatusExpired   SessionStatus = "expired"
)

// Terminal reports whether the session can no longer transition.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusPaired || s == SessionStatusExpired
}

type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusExpired      ConnectionStatus = "expired"
)

type MessageSender string

const (
	SenderClient MessageSender = "client"
	SenderAgent  MessageSender = "agent"
	SenderAI     MessageSender = "ai"
)

// Lead pipeline labels are kept in Portuguese: they are displayed verbatim
// and the extraction prompts produce them as-is.
type LeadStatus string

const (
	LeadStatusNovo         LeadStatus = "Novo"
	LeadStatusQualificando LeadStatus = "Qualificando"
	LeadStatusQualificado  LeadStatus = "Qualificado"
	LeadStatusAtendimento  LeadStatus = "Em atendimento"
	LeadStatusFinalizado   LeadStatus = "Finalizado"
)

type LeadTemperature string

const (
	TemperatureFrio   LeadTemperature = "Frio"
	TemperatureMorno  LeadTemperature = "Morno"
	TemperatureQuente LeadTemperature = "Quente"
)

func ValidSenders() []string {
	return []string{string(SenderClient), string(SenderAgent), string(SenderAI)}
}

func ValidLeadStatuses() []string {
	return []string{
		string(LeadStatusNovo), string(LeadStatusQualificando),
		string(LeadStatusQualificado), string(LeadStatusAtendimento),
		string(LeadStatusFinalizado),
	}
}
