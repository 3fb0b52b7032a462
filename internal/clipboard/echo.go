package clipboard

import "github.com/maynagashev/copypasta/models"

// Suppressed сообщает, что запись написана самим ожидающим клиентом и доставлять ее не нужно.
// Пустой callerClientID подавление отключает.
func Suppressed(entry *models.Entry, callerClientID string) bool {
	if entry == nil || callerClientID == "" || entry.ClientID == nil {
		return false
	}
	return *entry.ClientID == callerClientID
}
