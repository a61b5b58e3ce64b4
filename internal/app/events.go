package app

import (
	"encoding/json"

	"github.com/Guilhem-Bonnet/vnshelf/internal/ports"
)

// Topics publiés sur le bus (relayés tels quels par /events).
const (
	TopicLibraryAdded     = "library.added"
	TopicLibraryUpdated   = "library.updated"
	TopicLibraryRemoved   = "library.removed"
	TopicLibraryImported  = "library.imported"
	TopicLibraryRefreshed = "library.refreshed"

	TopicPurchaseSourceAdded   = "purchase_source.added"
	TopicPurchaseSourceRenamed = "purchase_source.renamed"
	TopicPurchaseSourceDeleted = "purchase_source.deleted"

	TopicRefreshProgress  = "refresh.progress"
	TopicRefreshCompleted = "refresh.completed"
	TopicRefreshFailed    = "refresh.failed"

	TopicSettingsUpdated = "settings.updated"
)

func publishJSON(bus ports.EventBus, topic string, v any) {
	if bus == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	bus.Publish(topic, b)
}
