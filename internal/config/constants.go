package config

// DefaultDatabasePath is the default path for the link store. The task
// queue lives next to it in a separate file.
const DefaultDatabasePath = "./deepr.db"
