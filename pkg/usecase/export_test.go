package usecase

// ProvisionUser is exported for testing
var ProvisionUser = provisionUser
