package htmx

import (
	"html"
	"strings"
)

// Minecraft servers embed formatting into responses as two-character
// sequences of a section sign and a code. They map onto css classes so the
// console can mimic the in-game colors.
var minecraftClasses = map[rune]string{
	'0': "mc-black",
	'1': "mc-dark-blue",
	'2': "mc-dark-green",
	'3': "mc-dark-aqua",
	'4': "mc-dark-red",
	'5': "mc-dark-purple",
	'6': "mc-gold",
	'7': "mc-gray",
	'8': "mc-dark-gray",
	'9': "mc-blue",
	'a': "mc-green",
	'b': "mc-aqua",
	'c': "mc-red",
	'd': "mc-light-purple",
	'e': "mc-yellow",
	'f': "mc-white",
	'k': "mc-obfuscated",
	'l': "mc-bold",
	'm': "mc-strikethrough",
	'n': "mc-underline",
	'o': "mc-italic",
}

const sectionSign = '§'

// MinecraftToHTML converts section-sign formatting codes into nested spans
// with the matching css classes. Text content is escaped; the reset code
// and unknown codes close all open spans.
func MinecraftToHTML(s string) string {
	var sb strings.Builder
	open := 0
	closeAll := func() {
		for ; open > 0; open-- {
			sb.WriteString("</span>")
		}
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == sectionSign && i+1 < len(runes) {
			code := runes[i+1]
			i++
			if class, ok := minecraftClasses[code]; ok {
				sb.WriteString(`<span class="` + class + `">`)
				open++
			} else {
				closeAll()
			}
			continue
		}
		sb.WriteString(html.EscapeString(string(runes[i])))
	}
	closeAll()
	return sb.String()
}
