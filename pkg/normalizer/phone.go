package normalizer

import "strings"

// FormatPhoneNumber quita el código de país de Perú (+51 o 51) del inicio.
// Cualquier otro valor se devuelve igual.
func FormatPhoneNumber(phone string) string {
	if strings.HasPrefix(phone, "+51") {
		return phone[3:]
	}
	if strings.HasPrefix(phone, "51") {
		return phone[2:]
	}
	return phone
}

var phoneNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "\t", "")

// CompactPhone elimina separadores visuales antes de formatear.
func CompactPhone(phone string) string {
	return phoneNoise.Replace(strings.TrimSpace(phone))
}

// NormalizePhone = CompactPhone + FormatPhoneNumber.
func NormalizePhone(phone string) string {
	return FormatPhoneNumber(CompactPhone(phone))
}
