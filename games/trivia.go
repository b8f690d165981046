package games

// Trivia buzzer game
//
// One host builds a quiz of multiple-choice questions (A-D, one correct),
// any number of players join by session ID
//
// Round flow:
// - Host starts the game; the first question is shown and the buzzer opens
// - Players race to buzz; the first one in gets the exclusive right to answer
// - A correct answer is worth a flat 100 points and closes the buzzer until
//   the host advances
// - A wrong answer reopens the buzzer for everyone else; the player who
//   missed sits out the rest of that question
// - After the last question, final scores are shown
//
// Display formats:
// - Host view: question list with answer keys, scoreboard, buzz/reset controls
// - Player view: question without the answer key, one big buzzer button
//
// Implementation details:
// - Single websocket endpoint; every action carries the session id
// - Identify connections by a random per-connection id (not a login)
// - The session dies the moment its host disconnects
