package service

import "strings"

// cleanModelJSON deja el contenido parseable de una respuesta del modelo:
// recorta espacios y BOM, y quita fences ```json ... ``` si vienen.
// Con fence multilinea se descartan la primera y la ultima linea; cualquier
// marcador remanente se elimina despues.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = strings.TrimPrefix(s, "\uFEFF")

	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) > 2 {
			s = strings.Join(lines[1:len(lines)-1], "\n")
		}
		s = strings.ReplaceAll(s, "```json", "")
		s = strings.ReplaceAll(s, "```", "")
	}

	return strings.TrimSpace(s)
}
