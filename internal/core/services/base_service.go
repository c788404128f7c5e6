package services

// systemUserID is recorded in audit fields for rows created by automated
// pipelines rather than a signed-in user.
const systemUserID = "system"
