package bot

import (
	"strings"
	"sync"
	"time"
)

// DefaultTriviaTimeout is how long a trivia question stays open.
const DefaultTriviaTimeout = 30 * time.Second

type triviaQuestion struct {
	Question string
	Answer   string
}

func (q triviaQuestion) correct(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), q.Answer)
}

var triviaQuestions = []triviaQuestion{
	{"What is the capital of France? 🇫🇷", "Paris"},
	{"What is the largest planet in our solar system? 🌌", "Jupiter"},
	{"Who wrote 'To Kill a Mockingbird'? 📚", "Harper Lee"},
	{"What is the chemical symbol for gold? 🏅", "Au"},
	{"In what year did the Titanic sink? 🚢", "1912"},
	{"What is the hardest natural substance on Earth? 💎", "Diamond"},
	{"Who painted the Mona Lisa? 🎨", "Leonardo da Vinci"},
	{"What is the smallest country in the world? 🌍", "Vatican City"},
	{"What element does 'O' represent on the periodic table? 🧪", "Oxygen"},
	{"What planet is known as the Red Planet? 🔴", "Mars"},
	{"Who is known as the father of modern physics? 👨‍🔬", "Albert Einstein"},
	{"Which ocean is the largest? 🌊", "Pacific Ocean"},
	{"What is the tallest mountain in the world? ⛰️", "Mount Everest"},
	{"In which city would you find the Colosseum? 🏛️", "Rome"},
	{"What year did World War II end? 🌍", "1945"},
	{"Which planet is closest to the Sun? ☀️", "Mercury"},
	{"Who wrote '1984'? 📖", "George Orwell"},
	{"What is the capital of Japan? 🇯🇵", "Tokyo"},
	{"How many continents are there on Earth? 🌎", "Seven"},
	{"What is the largest mammal in the world? 🐋", "Blue Whale"},
	{"Who was the first person to walk on the moon? 🌕", "Neil Armstrong"},
	{"What is the currency of the United Kingdom? 💷", "Pound Sterling"},
	{"What is the name of the longest river in the world? 🌊", "Nile"},
	{"Who developed the theory of relativity? 🧠", "Albert Einstein"},
	{"What is the chemical symbol for water? 💧", "H2O"},
	{"What is the main ingredient in guacamole? 🥑", "Avocado"},
	{"Which country is known as the Land of the Rising Sun? 🌅", "Japan"},
	{"Who painted 'Starry Night'? 🌟", "Vincent van Gogh"},
	{"What is the most abundant gas in Earth's atmosphere? 🌬️", "Nitrogen"},
	{"What is the smallest planet in our solar system? 🪐", "Mercury"},
	{"Who discovered penicillin? 💉", "Alexander Fleming"},
	{"What is the name of the galaxy that contains our solar system? 🌌", "Milky Way"},
	{"What is the capital city of Australia? 🐨", "Canberra"},
	{"What is the symbol for potassium on the periodic table? 🧪", "K"},
	{"What is the name of the phobia that involves an intense fear of spiders? 🕷️", "Arachnophobia"},
	{"Which element is represented by the symbol 'Fe'? 🧪", "Iron"},
	{"What fruit is known as the 'king of fruits' and has a strong odor? 🍍", "Durian"},
	{"What is the chemical formula for table salt? 🧂", "NaCl"},
	{"What is the name of the famous clock tower in London? ⏰", "Big Ben"},
	{"What is the hardest natural substance found in the human body? 💪", "Tooth enamel"},
	{"Who invented the light bulb? 💡", "Thomas Edison"},
}

// triviaKey identifies who may answer an open question and where.
type triviaKey struct {
	platform, channel, user string
}

type openQuestion struct {
	q     triviaQuestion
	timer *time.Timer
}

// triviaBoard tracks open questions. Each expires after timeout.
type triviaBoard struct {
	mu      sync.Mutex
	timeout time.Duration
	open    map[triviaKey]*openQuestion
}

func newTriviaBoard(timeout time.Duration) *triviaBoard {
	return &triviaBoard{timeout: timeout, open: make(map[triviaKey]*openQuestion)}
}

// ask opens q for key, replacing any question already open there. expired
// runs if nobody answers in time.
func (b *triviaBoard) ask(key triviaKey, q triviaQuestion, expired func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.open[key]; ok {
		prev.timer.Stop()
	}
	oq := &openQuestion{q: q}
	oq.timer = time.AfterFunc(b.timeout, func() {
		b.mu.Lock()
		cur, ok := b.open[key]
		if ok && cur == oq {
			delete(b.open, key)
		}
		b.mu.Unlock()
		if ok && cur == oq {
			expired()
		}
	})
	b.open[key] = oq
}

// take closes and returns the question open for key.
func (b *triviaBoard) take(key triviaKey) (triviaQuestion, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	oq, ok := b.open[key]
	if !ok {
		return triviaQuestion{}, false
	}
	if !oq.timer.Stop() {
		// the expiry callback already fired and owns this question
		return triviaQuestion{}, false
	}
	delete(b.open, key)
	return oq.q, true
}

func (b *triviaBoard) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, oq := range b.open {
		oq.timer.Stop()
		delete(b.open, k)
	}
}
