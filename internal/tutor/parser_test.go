package tutor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTopicText = `# Cinemática

## Definición
Rama de la mecánica que estudia el movimiento sin atender a sus causas.

## Conceptos Clave
- **Posición**: Lugar que ocupa un cuerpo en el espacio.
- **Velocidad**: Cambio de posición por unidad de tiempo.
- Aceleración sin formato

## Explicación Detallada
El movimiento se describe mediante magnitudes vectoriales.
Cada magnitud tiene módulo, dirección y sentido.

## Ejemplo Resuelto
Problema: Un coche recorre 100 m en 5 s. Calcula su velocidad media.

Solución:
1. Identificar datos: d = 100 m, t = 5 s
2. Aplicar v = d/t
3. v = 20 m/s

Conclusión: La velocidad media es 20 m/s.

## Aplicaciones Prácticas
1. Diseño de carreteras
2. Análisis de colisiones
3. Navegación`

func TestParseTopicContent(t *testing.T) {
	content := ParseTopicContent(sampleTopicText)

	assert.Equal(t, "Cinemática", content.Title)
	assert.Equal(t, "Rama de la mecánica que estudia el movimiento sin atender a sus causas.", content.Definition)

	require.Len(t, content.Concepts, 3)
	assert.Equal(t, "Posición", content.Concepts[0].Title)
	assert.Equal(t, "Lugar que ocupa un cuerpo en el espacio.", content.Concepts[0].Description)
	assert.Equal(t, "Concepto", content.Concepts[2].Title)
	assert.Equal(t, "Aceleración sin formato", content.Concepts[2].Description)

	assert.Contains(t, content.Explanation, "magnitudes vectoriales")
	assert.Contains(t, content.Example.Problem, "100 m en 5 s")
	assert.Contains(t, content.Example.Solution, "v = d/t")
	assert.Contains(t, content.Example.Conclusion, "20 m/s")

	require.Len(t, content.Applications, 3)
	assert.Equal(t, "Diseño de carreteras", content.Applications[0])
}

func TestParseTopicContentMissingSections(t *testing.T) {
	content := ParseTopicContent("Texto sin estructura alguna.")

	assert.Equal(t, "Texto sin estructura alguna.", content.Title)
	assert.Empty(t, content.Definition)
	assert.Empty(t, content.Concepts)
	assert.Empty(t, content.Applications)
}

const sampleExamplesText = `# Ejemplo 1: Caída libre

## Problema
Una piedra cae desde 20 m de altura.

## Solución Paso a Paso
1. Aplicar h = gt²/2
2. Despejar t

## Conclusión
La piedra tarda 2 segundos en caer.

# Ejemplo 2: Plano inclinado

## Problema
Un bloque se desliza por un plano de 30 grados.

## Solución Paso a Paso
1. Descomponer fuerzas

## Conclusión
La aceleración es g·sen(30).`

func TestParseExamples(t *testing.T) {
	examples := ParseExamples(sampleExamplesText)
	require.Len(t, examples, 2)

	assert.Equal(t, 1, examples[0].ID)
	assert.Equal(t, "Caída libre", examples[0].Title)
	assert.Contains(t, examples[0].Problem, "20 m de altura")
	assert.Contains(t, examples[0].Solution, "h = gt²/2")
	assert.Contains(t, examples[0].Conclusion, "2 segundos")

	assert.Equal(t, 2, examples[1].ID)
	assert.Equal(t, "Plano inclinado", examples[1].Title)
	assert.Contains(t, examples[1].Conclusion, "g·sen(30)")
}

func TestParseExamplesEmpty(t *testing.T) {
	assert.Empty(t, ParseExamples("sin ejemplos aquí"))
}

const sampleQuizText = `PREGUNTA
¿Cuál es la unidad de fuerza en el SI?

OPCIONES
A) Julio
B) Newton
C) Vatio
D) Pascal

RESPUESTA_CORRECTA
B

EXPLICACION
La fuerza se mide en newtons en honor a Isaac Newton.`

func TestParseQuiz(t *testing.T) {
	quiz := ParseQuiz(sampleQuizText)
	require.NotNil(t, quiz)

	assert.Equal(t, "¿Cuál es la unidad de fuerza en el SI?", quiz.Question)
	require.Len(t, quiz.Options, 4)
	assert.Equal(t, "Julio", quiz.Options[0])
	assert.Equal(t, "Newton", quiz.Options[1])
	assert.Equal(t, "Vatio", quiz.Options[2])
	assert.Equal(t, "Pascal", quiz.Options[3])
	assert.Equal(t, "B", quiz.CorrectAnswer)
	assert.Contains(t, quiz.Explanation, "Isaac Newton")
	assert.False(t, quiz.Timestamp.IsZero())
}

func TestParseQuizMalformed(t *testing.T) {
	assert.Nil(t, ParseQuiz("respuesta sin formato"))
	assert.Nil(t, ParseQuiz("PREGUNTA\n¿Algo?\n\nOPCIONES\nA) Sí\nB) No"))
}

func TestParseTopicList(t *testing.T) {
	topics := ParseTopicList("Cinemática, Leyes de Newton , Conservación de Energía,")
	assert.Equal(t, []string{"Cinemática", "Leyes de Newton", "Conservación de Energía"}, topics)

	assert.Empty(t, ParseTopicList("  ,  , "))
}
