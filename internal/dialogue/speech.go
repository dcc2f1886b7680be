package dialogue

import (
	"fmt"
	"strings"
)

const (
	msgWelcome         = "Bienvenido a Escoge tu Historia. Para comenzar, dime tu pseudónimo."
	msgLoginRetry      = "No entendí tu pseudónimo. Por favor dilo de nuevo."
	msgConsentAsk      = "Hola %s. Antes de continuar, ¿das tu consentimiento para registrar tu progreso? Di sí o no."
	msgConsentRetry    = "Por favor responde sí o no."
	msgConsentNo       = "Entiendo. Si cambias de opinión, vuelve cuando quieras."
	msgPlayedToday     = "Hoy ya has jugado un capítulo. Vuelve mañana para continuar con otro capítulo."
	msgSessionError    = "Hubo un error al crear la sesión."
	msgNoFirstScene    = "No se encontró la escena inicial."
	msgRestart         = "Empecemos de nuevo. Dime tu pseudónimo."
	msgElicitOption    = "¿Cuál opción eliges?"
	msgNoMatch         = "No entendí tu elección. También puedes decir el texto de la opción."
	msgDuplicate       = "Ya registré esa opción. ¿Quieres hacer otra cosa o continuar?"
	msgChapterEnd      = "Has seleccionado %s. Fin del capítulo."
	msgNoMoreScenes    = "Has seleccionado %s. No hay más escenas."
	msgOfferReminder   = " ¿Quieres que te recuerde mañana para continuar? Di sí o no."
	msgDecisionFailed  = "No se pudo registrar tu acción."
	msgNeedPermission  = "Necesito permiso para crear recordatorios. Por favor, revisa la app de Alexa."
	msgAskWhen         = "¿Para cuándo quieres el recordatorio? Di por ejemplo \"mañana\" o una fecha en formato YYYY-guion-MM-guion-DD, o di \"mañana a las 10\"."
	msgReminderNo      = "De acuerdo. No programaré un recordatorio. Hasta luego."
	msgReminderRetry   = "No entendí. ¿Quieres que te recuerde mañana para continuar? Di sí o no."
	msgPermissionAgain = "Para programar recordatorios necesito permiso. Revisa la app de Alexa."
	msgReminderSet     = "He programado el recordatorio para %s a las %s."
	msgReminderLocal   = "No pude crear el recordatorio en el dispositivo, pero lo guardé localmente."
	msgReminderFailed  = "No pude programar el recordatorio. Inténtalo más tarde."
	msgGoodbye         = "Hasta luego. Gracias por jugar a Escoge tu Historia."
	msgFallback        = "Recibido intent %s."
)

var spokenIndex = []string{"uno", "dos", "tres"}

// sceneSpeech narrates the scene followed by its numbered options and a hint
// that matches how many there are.
func sceneSpeech(text string, opts []OfferedOption) string {
	parts := make([]string, 0, len(opts)+1)
	if t := strings.TrimSpace(text); t != "" {
		parts = append(parts, strings.TrimSuffix(t, "."))
	}
	for _, o := range opts {
		if o.Index >= 1 && o.Index <= len(spokenIndex) {
			parts = append(parts, fmt.Sprintf("%s. %s", capitalize(spokenIndex[o.Index-1]), strings.TrimSuffix(o.OptionText, ".")))
		}
	}
	return strings.Join(parts, ". ") + ". " + choiceHint(len(opts))
}

func choiceHint(n int) string {
	switch n {
	case 1:
		return "Di \"uno\" o \"continuar\" para elegir."
	case 2:
		return "Di \"uno\" o \"dos\" para elegir."
	default:
		return "Di \"uno\", \"dos\" o \"tres\" para elegir."
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
