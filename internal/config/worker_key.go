package config

type WorkerKeyStruct struct {
	PersistAutosavesQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAutosavesQueue: "persist_autosaves_queue",
}
